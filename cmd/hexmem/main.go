// cmd/hexmem is a thin HTTP client for a running hexmem-server, useful for
// scripting and manual inspection without writing curl by hand.
//
//	hexmem search "what did we decide about retries"
//	hexmem recall --agent my-agent "deploy pipeline status"
//	hexmem agents
//	hexmem decay sweep --agent my-agent
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultRecallLimit = 10

func main() {
	log.SetPrefix("hexmem: ")
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	c := &client{
		baseURL: envOr("HEXMEM_URL", "http://localhost:8080"),
		apiKey:  os.Getenv("HEXMEM_API_KEY"),
	}

	var err error
	switch cmd {
	case "search":
		err = c.search(args)
	case "recall":
		err = c.recall(args)
	case "store":
		err = c.store(args)
	case "status":
		err = c.health(args)
	case "agents":
		err = c.agents(args)
	case "sessions":
		err = c.sessions(args)
	case "decay":
		err = c.decay(args)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hexmem <search|recall|store|status|agents|sessions|decay> [flags]")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type client struct {
	baseURL string
	apiKey  string
	http    http.Client
}

func (c *client) do(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpClient := c.http
	httpClient.Timeout = 30 * time.Second
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, string(respBody))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (c *client) search(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	agent := fs.String("agent", envOr("HEXMEM_AGENT", ""), "agent id or slug")
	limit := fs.Int("limit", 20, "max results")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("search requires a query argument")
	}
	var out interface{}
	err := c.do(http.MethodPost, "/api/v1/search", map[string]interface{}{
		"query": fs.Arg(0), "agent_id": *agent, "limit": *limit,
	}, &out)
	if err != nil {
		return err
	}
	printJSON(out)
	return nil
}

func (c *client) recall(args []string) error {
	fs := flag.NewFlagSet("recall", flag.ExitOnError)
	agent := fs.String("agent", envOr("HEXMEM_AGENT", ""), "agent id or slug")
	limit := fs.Int("limit", defaultRecallLimit, "max results")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("recall requires a query argument")
	}
	var out interface{}
	err := c.do(http.MethodPost, "/api/v1/recall", map[string]interface{}{
		"query": fs.Arg(0), "agent_id": *agent, "limit": *limit,
	}, &out)
	if err != nil {
		return err
	}
	printJSON(out)
	return nil
}

func (c *client) store(args []string) error {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	agent := fs.String("agent", envOr("HEXMEM_AGENT", ""), "agent id or slug")
	kind := fs.String("type", "facts", "facts|decisions|tasks|events|projects")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("store requires a content argument")
	}
	body := map[string]interface{}{"agent_id": *agent}
	switch *kind {
	case "facts":
		body["content"] = fs.Arg(0)
	case "decisions":
		body["title"] = fs.Arg(0)
		body["decision"] = fs.Arg(0)
	case "tasks", "projects":
		body["title"] = fs.Arg(0)
		body["name"] = fs.Arg(0)
	case "events":
		body["title"] = fs.Arg(0)
	default:
		return fmt.Errorf("unknown type %q", *kind)
	}
	var out interface{}
	if err := c.do(http.MethodPost, "/api/v1/"+*kind, body, &out); err != nil {
		return err
	}
	printJSON(out)
	return nil
}

func (c *client) health(args []string) error {
	var out interface{}
	if err := c.do(http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	printJSON(out)
	return nil
}

func (c *client) agents(args []string) error {
	var out interface{}
	if err := c.do(http.MethodGet, "/api/v1/agents", nil, &out); err != nil {
		return err
	}
	printJSON(out)
	return nil
}

func (c *client) sessions(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	agent := fs.String("agent", envOr("HEXMEM_AGENT", ""), "agent id or slug")
	fs.Parse(args)
	var out interface{}
	if err := c.do(http.MethodGet, "/api/v1/sessions?agent_id="+*agent, nil, &out); err != nil {
		return err
	}
	printJSON(out)
	return nil
}

func (c *client) decay(args []string) error {
	if len(args) == 0 {
		var out interface{}
		if err := c.do(http.MethodGet, "/api/v1/decay/status", nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	}
	if args[0] != "sweep" {
		return fmt.Errorf("unknown decay subcommand %q", args[0])
	}
	fs := flag.NewFlagSet("decay sweep", flag.ExitOnError)
	agent := fs.String("agent", envOr("HEXMEM_AGENT", ""), "agent id or slug; empty sweeps every agent")
	fs.Parse(args[1:])
	var out interface{}
	if err := c.do(http.MethodPost, "/api/v1/decay/sweep", map[string]interface{}{"agent_id": *agent}, &out); err != nil {
		return err
	}
	printJSON(out)
	return nil
}
