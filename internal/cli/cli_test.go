package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

const controllerSource = `package controllers

import "github.com/toyz/axonroute/pkg/axon"

// UserController serves users
//axon::controller /users -Middleware=auth
type UserController struct{}

// List returns every user
//axon::get /
func (c *UserController) List() []string { return nil }

//axon::get /:id
//axon::param 0 id
//axon::http 202
func (c *UserController) Show(id int) string { return "" }

//axon::post /
//axon::body 0
//axon::body 0
func (c *UserController) Create(in map[string]string, ctx axon.RequestContext) error { return nil }

//axon::param 3 id
//axon::get /broken
func (c *UserController) Broken(id int) {}

//axon::frobnicate
func (c *UserController) Unknown() {}

//axon::http 204
func (c *UserController) NoRoute() {}
`

const orphanSource = `package controllers

type Orphan struct{}

//axon::get /lost
func (o Orphan) Lost() {}

//axon::get /free
func Free() {}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return root
}

func TestDirectoryScanner(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":                "package main",
		"controllers/user.go":    "package controllers",
		"services/sub/helper.go": "package sub",
		"services/only_test.go":  "package services",
		"vendor/dep/dep.go":      "package dep",
		"testdata/fixture.go":    "package fixture",
		".hidden/secret.go":      "package secret",
		"_scratch/scratch.go":    "package scratch",
		"empty/README.md":        "nothing",
	})

	scanner := NewDirectoryScanner()
	dirs, err := scanner.ScanDirectories([]string{root + "/..."})
	require.NoError(t, err)
	assert.Equal(t, []string{
		root,
		filepath.Join(root, "controllers"),
		filepath.Join(root, "services", "sub"),
	}, dirs)

	dirs, err = scanner.ScanDirectories([]string{filepath.Join(root, "controllers"), filepath.Join(root, "services")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "controllers")}, dirs)

	_, err = scanner.ScanDirectories([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
	_, err = scanner.ScanDirectories([]string{filepath.Join(root, "main.go")})
	assert.Error(t, err)
}

func TestModuleResolver(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod":                   "module example.com/shop\n\ngo 1.25\n",
		"internal/orders/order.go": "package orders",
	})

	r := NewModuleResolver("")
	ip, err := r.ImportPath(filepath.Join(root, "internal", "orders"))
	require.NoError(t, err)
	assert.Equal(t, "example.com/shop/internal/orders", ip)

	ip, err = r.ImportPath(root)
	require.NoError(t, err)
	assert.Equal(t, "example.com/shop", ip)

	ip, err = NewModuleResolver("example.com/custom").ImportPath(filepath.Join(root, "internal"))
	require.NoError(t, err)
	assert.Equal(t, "example.com/custom/internal", ip)

	_, err = ParseModulePath("go.mod", []byte("go 1.25\n"))
	assert.Error(t, err)
}

func TestChecker(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod":                   "module example.com/app\n",
		"controllers/user.go":      controllerSource,
		"controllers/orphan.go":    orphanSource,
		"controllers/user_test.go": "package controllers\n\n//axon::nonsense\nfunc (c *UserController) T() {}\n",
	})

	report, err := NewChecker(nil).Check([]string{root + "/..."})
	require.NoError(t, err)
	require.Len(t, report.Packages, 1)

	pkg := report.Packages[0]
	assert.Equal(t, "example.com/app/controllers", pkg.ImportPath)
	assert.Equal(t, 2, pkg.Files)
	assert.Equal(t, []string{"UserController"}, pkg.Controllers)

	var routes []string
	for _, r := range pkg.Routes {
		routes = append(routes, r.Verb+" "+r.Path+" "+r.Method)
	}
	assert.ElementsMatch(t, []string{
		"GET /users List",
		"GET /users/:id Show",
		"POST /users Create",
		"GET /users/broken Broken",
	}, routes)

	var messages []string
	for _, f := range pkg.Findings {
		messages = append(messages, f.Severity.String()+": "+f.Message)
	}
	joined := strings.Join(messages, "\n")
	assert.Contains(t, joined, "error: argument already bound on UserController.Create")
	assert.Contains(t, joined, "error: param index out of range for UserController.Broken")
	assert.Contains(t, joined, `unknown annotation "frobnicate"`)
	assert.Contains(t, joined, "warning: UserController.NoRoute has annotations but no route")
	assert.Contains(t, joined, "warning: Orphan.Lost declares routes but Orphan has no controller annotation")
	assert.Contains(t, joined, "annotations on function Free are ignored")
	assert.NotContains(t, joined, "nonsense")

	assert.Equal(t, 4, report.Errors())
	assert.Equal(t, 2, report.Warnings())
	assert.Equal(t, 1, report.Controllers())
	assert.Equal(t, 4, report.Routes())
}

func TestChecker_ReportsSyntaxErrors(t *testing.T) {
	root := writeTree(t, map[string]string{
		"bad.go": "package bad\n\nfunc {",
	})
	report, err := NewChecker(NewModuleResolver("example.com/bad")).Check([]string{root})
	require.NoError(t, err)
	require.Len(t, report.Packages, 1)
	assert.Equal(t, "example.com/bad", report.Packages[0].ImportPath)
	assert.Equal(t, 1, report.Errors())
	assert.Zero(t, report.Packages[0].Files)
}

func TestReporter(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod":                "module example.com/app\n",
		"controllers/user.go":   controllerSource,
		"controllers/orphan.go": orphanSource,
	})
	report, err := NewChecker(nil).Check([]string{root + "/..."})
	require.NoError(t, err)

	var out bytes.Buffer
	NewReporter(&out, true, false).Report(report)
	text := out.String()
	assert.Contains(t, text, "user.go:23:1: error: param index out of range")
	assert.Contains(t, text, "warning: Orphan.Lost")
	assert.Contains(t, text, "example.com/app/controllers")
	assert.Contains(t, text, "GET     /users/:id  UserController.Show")
	assert.Contains(t, text, "Packages: 1  Controllers: 1  Routes: 4  Errors: 4  Warnings: 2")
	assert.NotContains(t, text, "All annotations are valid")

	out.Reset()
	NewReporter(&out, false, true).Report(report)
	assert.NotContains(t, out.String(), "warning")
	assert.NotContains(t, out.String(), "Packages:")
	assert.Contains(t, out.String(), "error")

	clean := writeTree(t, map[string]string{"ok.go": "package ok\n\n// axon::controller /ok\ntype OK struct{}\n\n// axon::get /\nfunc (OK) Index() {}\n"})
	report, err = NewChecker(NewModuleResolver("example.com/ok")).Check([]string{clean})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Routes())
	out.Reset()
	NewReporter(&out, false, false).Report(report)
	assert.Contains(t, out.String(), "All annotations are valid")
}
