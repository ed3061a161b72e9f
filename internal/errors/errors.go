// Package apperrors provides domain-specific error types for conman.
// These error types include contextual information to aid debugging and error reporting.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrContainerNotRunning = errors.New("container not running")
	ErrPortAutoAssign      = errors.New("port auto-assignment failed")
)

// ContainerNotRunningError is returned when an operation that needs a live
// runtime resource is attempted against a logical name with nothing behind it.
type ContainerNotRunningError struct {
	Name      string // Logical container name
	Operation string // Operation that was attempted (e.g., "stop", "exec")
}

// Error implements the error interface for ContainerNotRunningError.
func (e *ContainerNotRunningError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("cannot %s container %s: %v", e.Operation, e.Name, ErrContainerNotRunning)
	}
	return fmt.Sprintf("container %s: %v", e.Name, ErrContainerNotRunning)
}

// Is reports whether target is ErrContainerNotRunning.
func (e *ContainerNotRunningError) Is(target error) bool {
	return target == ErrContainerNotRunning
}

// PortAutoAssignError represents a request to derive host ports from an
// identifier that is not numeric, or whose offset pushes a local port past
// the highest valid port.
type PortAutoAssignError struct {
	ID        string // Identifier used as the port offset
	LocalPort int    // Local port whose host port is out of range; 0 for a non-numeric ID
}

// Error implements the error interface for PortAutoAssignError.
func (e *PortAutoAssignError) Error() string {
	if e.LocalPort != 0 {
		return fmt.Sprintf("%v: port %d offset by identifier %s exceeds 65535", ErrPortAutoAssign, e.LocalPort, e.ID)
	}
	return fmt.Sprintf("%v: identifier %q is not numeric", ErrPortAutoAssign, e.ID)
}

// Is reports whether target is ErrPortAutoAssign.
func (e *PortAutoAssignError) Is(target error) bool {
	return target == ErrPortAutoAssign
}

// ConfigurationError represents configuration-related errors.
// It includes the configuration file path and specific key that caused the error.
type ConfigurationError struct {
	ConfigPath string // Path to the configuration file
	Key        string // Configuration key that caused the error
	Err        error  // Underlying error
}

// Error implements the error interface for ConfigurationError.
func (e *ConfigurationError) Error() string {
	if e.ConfigPath == "" {
		if e.Key != "" {
			return fmt.Sprintf("configuration error (key: %s): %v", e.Key, e.Err)
		}
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("configuration error in %s (key: %s): %v", e.ConfigPath, e.Key, e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %v", e.ConfigPath, e.Err)
}

// Unwrap returns the underlying error for error wrapping chains.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DockerConnectionError represents Docker connection and operation errors.
// It includes the socket path and the operation that failed.
type DockerConnectionError struct {
	SocketPath string // Docker socket path (e.g., /var/run/docker.sock)
	Operation  string // Operation that failed (e.g., "Ping", "NewClient")
	Err        error  // Underlying error
}

// Error implements the error interface for DockerConnectionError.
func (e *DockerConnectionError) Error() string {
	if e.SocketPath != "" {
		return fmt.Sprintf("docker %s failed (socket: %s): %v", e.Operation, e.SocketPath, e.Err)
	}
	return fmt.Sprintf("docker %s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for error wrapping chains.
func (e *DockerConnectionError) Unwrap() error {
	return e.Err
}
