// Package application wires resolved settings into runnable entrypoints. It
// builds the router and route modules, owns the HTTP server lifecycle, and
// keeps the registry of entrypoints the main package dispatches to, so the
// main package stays focused on CLI parsing and orchestration.
package application
