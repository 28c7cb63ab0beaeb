package cli

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toyz/axonroute/pkg/annotation"
	"github.com/toyz/axonroute/pkg/metadata"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Finding is a problem found in an annotation comment
type Finding struct {
	Pos      token.Position
	Severity Severity
	Message  string
}

// Route is a route declared in source
type Route struct {
	Verb       string
	Path       string
	Controller string
	Method     string
	Pos        token.Position
}

// PackageReport is the result of checking one package directory
type PackageReport struct {
	Dir         string
	ImportPath  string
	Files       int
	Controllers []string
	Routes      []Route
	Findings    []Finding
}

// Report aggregates the checked packages
type Report struct {
	Packages []PackageReport
}

func (r *Report) count(fn func(PackageReport) int) int {
	n := 0
	for _, p := range r.Packages {
		n += fn(p)
	}
	return n
}

func (r *Report) Controllers() int {
	return r.count(func(p PackageReport) int { return len(p.Controllers) })
}

func (r *Report) Routes() int {
	return r.count(func(p PackageReport) int { return len(p.Routes) })
}

func (r *Report) Errors() int {
	return r.count(func(p PackageReport) int { return countSeverity(p.Findings, SeverityError) })
}

func (r *Report) Warnings() int {
	return r.count(func(p PackageReport) int { return countSeverity(p.Findings, SeverityWarning) })
}

func countSeverity(findings []Finding, s Severity) int {
	n := 0
	for _, f := range findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// Checker validates //axon:: comments in Go source without compiling it
type Checker struct {
	scanner  *DirectoryScanner
	resolver *ModuleResolver
}

func NewChecker(resolver *ModuleResolver) *Checker {
	if resolver == nil {
		resolver = NewModuleResolver("")
	}
	return &Checker{scanner: NewDirectoryScanner(), resolver: resolver}
}

// Check scans the directory patterns and checks every package found
func (c *Checker) Check(patterns []string) (*Report, error) {
	dirs, err := c.scanner.ScanDirectories(patterns)
	if err != nil {
		return nil, err
	}
	report := &Report{}
	for _, dir := range dirs {
		pkg, err := c.CheckDir(dir)
		if err != nil {
			return nil, err
		}
		report.Packages = append(report.Packages, pkg)
	}
	return report, nil
}

// controllerDecl is a //axon::controller found on a type
type controllerDecl struct {
	path string
	pos  token.Position
}

// methodDecl is a method carrying route annotations
type methodDecl struct {
	recv   string
	name   string
	routes []Route
	pos    token.Position
}

// CheckDir checks the non-test Go files of one directory
func (c *Checker) CheckDir(dir string) (PackageReport, error) {
	report := PackageReport{Dir: dir}
	if ip, err := c.resolver.ImportPath(dir); err == nil {
		report.ImportPath = ip
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, err
	}

	fset := token.NewFileSet()
	controllers := make(map[string]controllerDecl)
	var methods []methodDecl
	for _, e := range entries {
		if e.IsDir() || !goFile(e.Name()) {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, e.Name()), nil, parser.ParseComments)
		if err != nil {
			report.Findings = append(report.Findings, Finding{
				Pos:      token.Position{Filename: filepath.Join(dir, e.Name())},
				Severity: SeverityError,
				Message:  err.Error(),
			})
			continue
		}
		report.Files++
		ms := c.checkFile(fset, file, controllers, &report)
		methods = append(methods, ms...)
	}

	for _, m := range methods {
		ctrl, ok := controllers[m.recv]
		if !ok {
			report.Findings = append(report.Findings, Finding{
				Pos:      m.pos,
				Severity: SeverityWarning,
				Message:  m.recv + "." + m.name + " declares routes but " + m.recv + " has no controller annotation",
			})
			continue
		}
		for _, r := range m.routes {
			r.Path = metadata.ResolvePath(ctrl.path, r.Path)
			report.Routes = append(report.Routes, r)
		}
	}

	for name := range controllers {
		report.Controllers = append(report.Controllers, name)
	}
	sort.Strings(report.Controllers)
	sort.SliceStable(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i].Pos, report.Findings[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Line < b.Line
	})
	return report, nil
}

func (c *Checker) checkFile(fset *token.FileSet, file *ast.File, controllers map[string]controllerDecl, report *PackageReport) []methodDecl {
	var methods []methodDecl
	add := func(pos token.Pos, s Severity, msg string) {
		report.Findings = append(report.Findings, Finding{Pos: fset.Position(pos), Severity: s, Message: msg})
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				doc := ts.Doc
				if doc == nil && len(d.Specs) == 1 {
					doc = d.Doc
				}
				for _, line := range annotationLines(doc) {
					a, err := annotation.Check(line.Text, annotation.OnType)
					if err != nil {
						add(line.Slash, SeverityError, err.Error())
						continue
					}
					if _, dup := controllers[ts.Name.Name]; dup {
						add(line.Slash, SeverityError, "duplicate controller annotation on "+ts.Name.Name)
						continue
					}
					path := "/"
					if pos := a.Positional(); len(pos) > 0 {
						path = pos[0].Text()
					}
					controllers[ts.Name.Name] = controllerDecl{path: path, pos: fset.Position(line.Slash)}
				}
			}

		case *ast.FuncDecl:
			lines := annotationLines(d.Doc)
			if len(lines) == 0 {
				continue
			}
			if d.Recv == nil || len(d.Recv.List) == 0 {
				add(lines[0].Slash, SeverityError, "annotations on function "+d.Name.Name+" are ignored, declare them on a controller method")
				continue
			}
			m := methodDecl{recv: receiverName(d.Recv.List[0].Type), name: d.Name.Name, pos: fset.Position(d.Pos())}
			arity := paramCount(d.Type.Params)
			bound := make(map[int]bool)
			valid := 0
			for _, line := range lines {
				a, err := annotation.Check(line.Text, annotation.OnMethod)
				if err != nil {
					add(line.Slash, SeverityError, err.Error())
					continue
				}
				valid++
				switch {
				case annotation.IsRoute(a.Kind):
					path := "/"
					if pos := a.Positional(); len(pos) > 0 {
						path = pos[0].Text()
					}
					m.routes = append(m.routes, Route{
						Verb:       strings.ToUpper(a.Kind),
						Path:       path,
						Controller: m.recv,
						Method:     m.name,
						Pos:        fset.Position(line.Slash),
					})
				case a.Kind != "http" && a.Kind != "render" && a.Kind != "upload":
					index, _ := a.Positional()[0].Int()
					if index >= arity {
						add(line.Slash, SeverityError, a.Kind+" index out of range for "+m.recv+"."+m.name)
					} else if bound[index] {
						add(line.Slash, SeverityError, "argument already bound on "+m.recv+"."+m.name)
					}
					bound[index] = true
				}
			}
			if len(m.routes) == 0 {
				if valid > 0 {
					add(lines[0].Slash, SeverityWarning, m.recv+"."+m.name+" has annotations but no route")
				}
				continue
			}
			methods = append(methods, m)
		}
	}
	return methods
}

// annotationLine is an //axon:: comment. gofmt rewrites doc comment lines
// to "// axon::", so both spellings are accepted.
type annotationLine struct {
	Slash token.Pos
	Text  string
}

func annotationLines(doc *ast.CommentGroup) []annotationLine {
	if doc == nil {
		return nil
	}
	bare := strings.TrimPrefix(annotation.Prefix, "//")
	var out []annotationLine
	for _, c := range doc.List {
		text := strings.TrimLeft(strings.TrimPrefix(c.Text, "//"), " \t")
		if strings.HasPrefix(c.Text, "//") && strings.HasPrefix(text, bare) {
			out = append(out, annotationLine{Slash: c.Slash, Text: "//" + text})
		}
	}
	return out
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	}
	return ""
}

func paramCount(fields *ast.FieldList) int {
	if fields == nil {
		return 0
	}
	n := 0
	for _, f := range fields.List {
		if len(f.Names) == 0 {
			n++
		} else {
			n += len(f.Names)
		}
	}
	return n
}
