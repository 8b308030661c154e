// Package parser is the boundary to the external document extractor. The
// extractor turns a source document into paragraphs, tracked changes,
// comments and reviewers; this package only consumes its JSON result.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"collate/api/internal/collate"
)

// Parser turns raw document bytes into a parse result.
type Parser interface {
	Parse(ctx context.Context, data []byte, filename string) (collate.ParseResult, error)
}

// Func adapts a function to Parser.
type Func func(ctx context.Context, data []byte, filename string) (collate.ParseResult, error)

func (f Func) Parse(ctx context.Context, data []byte, filename string) (collate.ParseResult, error) {
	return f(ctx, data, filename)
}

var ErrNoExtractor = errors.New("no document extractor configured")

// JSON decodes extractor output that was produced ahead of time.
type JSON struct{}

func (JSON) Parse(_ context.Context, data []byte, _ string) (collate.ParseResult, error) {
	return Decode(data)
}

// Decode reads one extractor result and fills in the empty slices the
// extractor may omit.
func Decode(data []byte) (collate.ParseResult, error) {
	var result collate.ParseResult
	if err := json.Unmarshal(data, &result); err != nil {
		return collate.ParseResult{}, fmt.Errorf("decode extractor output: %w", err)
	}
	normalize(&result)
	return result, nil
}

func normalize(result *collate.ParseResult) {
	if result.Paragraphs == nil {
		result.Paragraphs = []collate.Paragraph{}
	}
	if result.Reviewers == nil {
		result.Reviewers = []collate.Reviewer{}
	}
	for i := range result.Paragraphs {
		p := &result.Paragraphs[i]
		if p.Status == "" {
			p.Status = collate.StatusNormal
		}
		if p.ReviewerVersions == nil {
			p.ReviewerVersions = []collate.ReviewerVersion{}
		}
		if p.Comments == nil {
			p.Comments = []collate.Comment{}
		}
		if p.TrackChanges == nil {
			p.TrackChanges = []collate.TrackChange{}
		}
	}
}

// Exec runs an extractor command that reads the document on stdin and
// writes its JSON result to stdout. The filename is passed as the last
// argument.
type Exec struct {
	Command string
	Args    []string
}

func (e Exec) Parse(ctx context.Context, data []byte, filename string) (collate.ParseResult, error) {
	if strings.TrimSpace(e.Command) == "" {
		return collate.ParseResult{}, ErrNoExtractor
	}
	args := append(append([]string{}, e.Args...), filename)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return collate.ParseResult{}, fmt.Errorf("run extractor: %w: %s", err, msg)
		}
		return collate.ParseResult{}, fmt.Errorf("run extractor: %w", err)
	}
	return Decode(stdout.Bytes())
}

// Dispatch decodes .json inputs directly and hands everything else to the
// extractor command.
type Dispatch struct {
	Extractor Parser
}

// New returns a Dispatch backed by command, which may be empty.
func New(command string) Dispatch {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return Dispatch{}
	}
	return Dispatch{Extractor: Exec{Command: fields[0], Args: fields[1:]}}
}

func (d Dispatch) Parse(ctx context.Context, data []byte, filename string) (collate.ParseResult, error) {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return JSON{}.Parse(ctx, data, filename)
	}
	if d.Extractor == nil {
		return collate.ParseResult{}, fmt.Errorf("%s: %w", filename, ErrNoExtractor)
	}
	return d.Extractor.Parse(ctx, data, filename)
}
