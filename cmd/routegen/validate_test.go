package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate_SchemaFile(t *testing.T) {
	path := writeSchema(t, `
repos:
  get:
    url: /repos/:owner
    method: GET
    params:
      owner: { required: true }
`)

	var out bytes.Buffer
	validateCmd.SetOut(&out)
	defer validateCmd.SetOut(nil)

	if err := runValidate(validateCmd, []string{path}); err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if !strings.Contains(out.String(), "Endpoints: 1") {
		t.Errorf("output = %s", out.String())
	}
}

func TestValidate_UnresolvedReference(t *testing.T) {
	path := writeSchema(t, `
repos:
  get:
    url: /repos/:owner
    method: GET
    params:
      $owner: null
`)

	var out bytes.Buffer
	validateCmd.SetOut(&out)
	defer validateCmd.SetOut(nil)

	err := runValidate(validateCmd, []string{path})
	if err == nil {
		t.Fatal("expected error for unresolved reference")
	}
	if !strings.Contains(err.Error(), "$owner") {
		t.Errorf("error = %v, want it to name $owner", err)
	}
}
