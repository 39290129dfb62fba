/*
Package schema defines the route schema: the declarative description of an HTTP
API that the registry compiles into callable endpoints.

# Route Schema

A schema is a tree. Interior nodes are named path segments, terminal nodes are
route definitions (a node is terminal when it has both url and params):

	defines:
	  constants:
	    protocol: https
	    host: api.example.com
	    requestFormat: json
	    requestMedia: application/vnd.example.v3+json
	  params:
	    user: { type: string, required: true, validation: "^[A-Za-z0-9-]+$" }
	  request-headers: [if-none-match, if-modified-since]
	  response-headers: [etag, link, x-ratelimit-remaining]

	repos:
	  get:
	    url: /repos/:user/:repo
	    method: GET
	    params:
	      $user: null
	      repo: { type: string, required: true }
	  get-branch:
	    url: /repos/:user/:repo/branches/:branch
	    method: GET
	    params: { $user: null, repo: { required: true }, branch: { required: true } }

# Parameter References

A params key prefixed with $ references an entry of defines.params. References are
resolved by Resolve into a fresh schema; the parsed input is never modified.
An unresolved reference is a schema error.

# Parsing

	s, err := schema.ParseFile("routes.yaml")

YAML and JSON documents are both accepted. Documents are checked against an embedded
JSON Schema before decoding, then validated semantically.
*/
package schema
