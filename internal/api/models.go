package api

import "time"

// Envelope wraps a payload under a data key.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// Wrap puts v in an Envelope.
func Wrap[T any](v T) Envelope[T] {
	return Envelope[T]{Data: v}
}

// Success is returned by operations without a payload.
type Success struct {
	Success bool `json:"success"`
}

// OK is a successful Success.
func OK() Success {
	return Success{Success: true}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type infoResponse struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Version      string   `json:"version"`
	RootPath     string   `json:"root_path,omitempty"`
	RouteModules []string `json:"route_modules"`
}
