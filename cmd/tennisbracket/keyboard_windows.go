//go:build windows

package main

// cbreak is a no-op on Windows; keys arrive after Enter.
func cbreak(fd int) (func(), error) {
	return func() {}, nil
}
