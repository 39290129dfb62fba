package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/routegen/bootstrap"
	"github.com/artpar/routegen/domain/apierr"
	"github.com/artpar/routegen/domain/auth"
	"github.com/artpar/routegen/domain/call"
)

var callCmd = &cobra.Command{
	Use:   "call <namespace> <function>",
	Short: "Call one endpoint",
	Long: `Validate the given parameters and call one compiled endpoint.

Parameters are passed as strings and coerced by the route's parameter rules.

Examples:
  routegen call repos get -p owner=octo -p repo=hello
  routegen call gists create -p 'files={"a.txt":{"content":"hi"}}' --auth-token $TOKEN
  routegen call repos upload-asset -p id=1 --file dist/app.zip
  routegen call markdown render-raw --data '# Title' --include`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

var (
	callParams    []string
	callHeaders   []string
	callData      string
	callFile      string
	callAuthToken string
	callAuthBasic string
	callAuthOAuth string
	callInclude   bool
)

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringArrayVarP(&callParams, "param", "p", nil, "parameter as name=value (repeatable)")
	callCmd.Flags().StringArrayVarP(&callHeaders, "header", "H", nil, "request header as name=value (repeatable)")
	callCmd.Flags().StringVar(&callData, "data", "", "raw payload for raw-format routes")
	callCmd.Flags().StringVar(&callFile, "file", "", "file to upload for file-body routes")
	callCmd.Flags().StringVar(&callAuthToken, "auth-token", "", "token authentication")
	callCmd.Flags().StringVar(&callAuthBasic, "auth-basic", "", "basic authentication as user:password")
	callCmd.Flags().StringVar(&callAuthOAuth, "auth-oauth", "", "oauth access token")
	callCmd.Flags().BoolVarP(&callInclude, "include", "i", false, "print status and response meta headers")
}

func runCall(cmd *cobra.Command, args []string) error {
	msg, err := buildMessage(callParams, callHeaders)
	if err != nil {
		return err
	}
	if callData != "" {
		msg[call.KeyData] = callData
	}
	if callFile != "" {
		msg[call.KeyFilePath] = callFile
	}

	a, err := bootstrap.New(cfgFile)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if creds, ok, err := authFromFlags(); err != nil {
		return err
	} else if ok {
		if err := a.Client.Authenticate(creds); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
	}

	resp, err := a.Client.Call(cmd.Context(), args[0], args[1], msg)
	out := cmd.OutOrStdout()
	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) && apiErr.Body != "" {
			writeBody(out, apiErr.Body)
		}
		return err
	}
	if resp == nil {
		return nil
	}

	if callInclude {
		fmt.Fprintf(out, "status: %d\n", resp.Status)
		keys := make([]string, 0, len(resp.Meta))
		for k := range resp.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "%s: %s\n", k, resp.Meta[k])
		}
		fmt.Fprintln(out)
	}
	writeBody(out, resp.Body)
	return nil
}

// buildMessage turns name=value flags into a call message.
func buildMessage(params, headers []string) (call.Message, error) {
	msg := call.Message{}
	for _, p := range params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, want name=value", p)
		}
		msg[name] = value
	}

	if len(headers) > 0 {
		h := make(map[string]string, len(headers))
		for _, raw := range headers {
			name, value, ok := strings.Cut(raw, "=")
			if !ok || name == "" {
				return nil, fmt.Errorf("invalid header %q, want name=value", raw)
			}
			h[name] = value
		}
		msg[call.KeyHeaders] = h
	}
	return msg, nil
}

func authFromFlags() (auth.Auth, bool, error) {
	switch {
	case callAuthToken != "":
		return auth.BearerToken(callAuthToken), true, nil
	case callAuthOAuth != "":
		return auth.OAuthToken(callAuthOAuth), true, nil
	case callAuthBasic != "":
		user, pass, ok := strings.Cut(callAuthBasic, ":")
		if !ok {
			return auth.Auth{}, false, fmt.Errorf("--auth-basic wants user:password")
		}
		return auth.Basic(user, pass), true, nil
	}
	return auth.Auth{}, false, nil
}

// writeBody pretty-prints JSON bodies and writes anything else verbatim.
func writeBody(w io.Writer, body string) {
	var buf bytes.Buffer
	if json.Indent(&buf, []byte(body), "", "  ") == nil {
		fmt.Fprintln(w, buf.String())
		return
	}
	fmt.Fprintln(w, body)
}
