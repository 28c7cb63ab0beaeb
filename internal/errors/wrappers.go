package errors

import (
	"fmt"
	"net/http"
)

// Error constructors shared by the registry, the builder and the request pipeline.

// DuplicatedControllerName is raised by the builder when two controllers share a display name
func DuplicatedControllerName(name string) *BaseError {
	return New(DuplicateControllerErrorCode,
		fmt.Sprintf("Two controllers cannot have the same name: %s", name)).
		WithContext("controller", name).
		WithSuggestion("rename one of the controller types or move it into a single package")
}

// NoControllerFound is raised when controllers are required but none are registered
func NoControllerFound() *BaseError {
	return New(NoControllerErrorCode,
		"No controller found! Please ensure that you have register at least one Controller.")
}

// RegistrationFailed wraps an annotation processor failure
func RegistrationFailed(componentType, name, reason string) *BaseError {
	return Newf(RegistrationErrorCode, "failed to register %s '%s': %s", componentType, name, reason).
		WithContext("component_type", componentType).
		WithContext("component_name", name)
}

// ParseFailed wraps an annotation string parse failure
func ParseFailed(item string, loc SourceLocation, cause error) *BaseError {
	return Wrap(SyntaxErrorCode, fmt.Sprintf("failed to parse %s", item), cause).WithLocation(loc)
}

// InvalidUploadOptions is raised at annotation time for an unrecognized upload option shape
func InvalidUploadOptions(shape interface{}) *BaseError {
	return Newf(UploadErrorCode, "invalid file upload options: %T", shape).
		WithStatus(http.StatusBadRequest).
		WithSuggestion("use upload.Field, []upload.Field, upload.None{} or upload.Any{}")
}

// UploadFailed wraps a multipart extraction failure for a request
func UploadFailed(cause error) *BaseError {
	return Wrap(UploadErrorCode, "file upload failed", cause).WithStatus(http.StatusBadRequest)
}

// InvalidParameter reports a request value that cannot be converted into a handler argument
func InvalidParameter(name string, index int, value interface{}, cause error) *BaseError {
	return Wrapf(ParameterErrorCode, cause, "invalid value %v for parameter %q (argument %d)", value, name, index).
		WithStatus(http.StatusBadRequest).
		WithContext("parameter", name).
		WithContext("index", index)
}

// WrapConfigurationError wraps configuration-related errors
func WrapConfigurationError(configType, operation string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s configuration '%s'", operation, configType)
	return Wrap(ConfigurationErrorCode, message, cause).
		WithContext("config_type", configType).
		WithContext("operation", operation)
}

// ConfigurationError creates a configuration error
func ConfigurationError(configType, message string) *BaseError {
	fullMessage := fmt.Sprintf("configuration error in '%s': %s", configType, message)
	return New(ConfigurationErrorCode, fullMessage).
		WithContext("config_type", configType)
}

// WrapDependencyError wraps dependency injection errors
func WrapDependencyError(dependencyType, dependencyName string, cause error) *BaseError {
	message := fmt.Sprintf("failed to resolve dependency '%s' of type '%s'", dependencyName, dependencyType)
	return Wrap(DependencyErrorCode, message, cause).
		WithContext("dependency_type", dependencyType).
		WithContext("dependency_name", dependencyName)
}

// DependencyError creates a dependency error
func DependencyError(dependencyType, dependencyName, message string) *BaseError {
	fullMessage := fmt.Sprintf("dependency error for '%s' of type '%s': %s", dependencyName, dependencyType, message)
	return New(DependencyErrorCode, fullMessage).
		WithContext("dependency_type", dependencyType).
		WithContext("dependency_name", dependencyName)
}

// WrapRenderError wraps a view rendering failure
func WrapRenderError(template string, cause error) *BaseError {
	return Wrapf(RenderErrorCode, cause, "failed to render template '%s'", template).
		WithStatus(http.StatusInternalServerError).
		WithContext("template", template)
}
