// Package pages renders the full HTML documents served by the service.
package pages

//go:generate templ generate
