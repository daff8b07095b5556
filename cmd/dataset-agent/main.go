package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/statkit/dataset-broker/internal/agent"
	"github.com/statkit/dataset-broker/internal/log"
)

func main() {
	serverCmd := flag.String("server", "dataset-broker", "Server command to spawn (arguments separated by spaces)")
	list := flag.Bool("list", false, "List the tools the server advertises")
	tool := flag.String("tool", "", "Tool name to call")
	args := flag.String("args", "{}", "Tool arguments as a JSON object")
	timeout := flag.Duration("timeout", 30*time.Second, "Per-call timeout")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	logger := log.New(*logLevel)

	if !*list && strings.TrimSpace(*tool) == "" {
		fmt.Fprintln(os.Stderr, "either -list or -tool is required")
		os.Exit(2)
	}

	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(*args), &toolArgs); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -args: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fields := strings.Fields(*serverCmd)
	if len(fields) == 0 {
		fmt.Fprintln(os.Stderr, "empty -server command")
		os.Exit(2)
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		logger.Error("open server stdin failed", "error", err)
		os.Exit(1)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		logger.Error("open server stdout failed", "error", err)
		os.Exit(1)
	}
	if err := cmd.Start(); err != nil {
		logger.Error("start server failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		stdin.Close()
		_ = cmd.Wait()
	}()

	client := agent.NewClient(stdout, stdin, *timeout, logger)
	defer client.Close()

	callCtx, callCancel := context.WithTimeout(ctx, *timeout)
	defer callCancel()

	if err := client.Initialize(callCtx); err != nil {
		logger.Error("handshake failed", "error", err)
		os.Exit(1)
	}

	if *list {
		tools, err := client.ListTools(callCtx)
		if err != nil {
			logger.Error("list tools failed", "error", err)
			os.Exit(1)
		}
		for _, item := range tools {
			fmt.Printf("%s\t%s\n", item.Name, item.Description)
		}
		return
	}

	result, err := client.CallTool(callCtx, *tool, toolArgs)
	if err != nil {
		logger.Error("tool call failed", "tool", *tool, "error", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(result))
}

func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
