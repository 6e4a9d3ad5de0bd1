// Command webhook is a pointerzone plugin that forwards zone events to an
// HTTP endpoint.
//
// Binding config:
//
//	{"url": "http://localhost:9000/hook", "method": "POST", "headers": {"X-Token": "..."}}
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type request struct {
	Event  string          `json:"event"`
	Zone   string          `json:"zone"`
	Action string          `json:"action"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

type response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type hookConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

type payload struct {
	Event  string          `json:"event"`
	Zone   string          `json:"zone"`
	Params json.RawMessage `json:"params,omitempty"`
	SentAt time.Time       `json:"sent_at"`
}

var client = &http.Client{Timeout: 3 * time.Second}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		reply(fmt.Errorf("decode request: %w", err), nil)
		return
	}
	if req.Action != "post" {
		reply(fmt.Errorf("unknown action: %s", req.Action), nil)
		return
	}

	status, err := send(client, req)
	if err != nil {
		reply(err, nil)
		return
	}
	data, _ := json.Marshal(map[string]int{"status": status})
	reply(nil, data)
}

func send(c *http.Client, req request) (int, error) {
	var cfg hookConfig
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return 0, fmt.Errorf("parse config: %w", err)
		}
	}
	if cfg.URL == "" {
		return 0, fmt.Errorf("url is required")
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}

	body, err := json.Marshal(payload{Event: req.Event, Zone: req.Zone, Params: req.Params, SentAt: time.Now().UTC()})
	if err != nil {
		return 0, err
	}

	hr, err := http.NewRequest(cfg.Method, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	hr.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		hr.Header.Set(k, v)
	}

	resp, err := c.Do(hr)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("%s %s: %s", cfg.Method, cfg.URL, resp.Status)
	}
	return resp.StatusCode, nil
}

func reply(err error, data json.RawMessage) {
	resp := response{Success: err == nil, Data: data}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
