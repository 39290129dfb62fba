// Package main is the entry point for routegen, a command line client for
// APIs described by a route schema.
package main

func main() {
	Execute()
}
