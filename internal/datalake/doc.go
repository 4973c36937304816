// Package datalake mounts the data lake endpoints under /datalake. Handlers
// read their settings from the "datalake" section on every request, so a
// resolver reset is picked up without restarting the router.
package datalake
