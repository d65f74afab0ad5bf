// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package buildfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Extension is the file extension of build files.
const Extension = ".hcl"

// Loader parses build files into a Description.
type Loader struct {
	parser  *hclparse.Parser
	evalCtx *hcl.EvalContext
}

// NewLoader creates a new build file loader.
func NewLoader() *Loader {
	return &Loader{
		parser:  hclparse.NewParser(),
		evalCtx: newEvalContext(os.Environ()),
	}
}

func newEvalContext(environ []string) *hcl.EvalContext {
	env := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	envVal := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		envVal = cty.MapVal(env)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"env": envVal}}
}

// Load reads the build file at path, or every build file beneath path when
// it is a directory.
func (l *Loader) Load(ctx context.Context, path string) (*Description, error) {
	files, err := fsutil.ResolveBuildFiles(path, Extension)
	if err != nil {
		return nil, err
	}
	srcs := make(map[string][]byte, len(files))
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading build file: %w", err)
		}
		srcs[f] = src
	}
	return l.parse(ctx, files, srcs)
}

// Parse reads a single build file from memory. Relative directories are
// resolved against the directory of filename.
func (l *Loader) Parse(ctx context.Context, filename string, src []byte) (*Description, error) {
	return l.parse(ctx, []string{filename}, map[string][]byte{filename: src})
}

func (l *Loader) parse(ctx context.Context, files []string, srcs map[string][]byte) (*Description, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build file loader started.", "file_count", len(files))

	desc := &Description{Files: files}
	for _, file := range files {
		hclFile, diags := l.parser.ParseHCL(srcs[file], file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse build file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, l.evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode build file %s: %w", file, diags)
		}

		baseDir, err := filepath.Abs(filepath.Dir(file))
		if err != nil {
			return nil, err
		}
		for _, pb := range root.Projects {
			decl, err := l.translateProject(pb, baseDir, true)
			if err != nil {
				return nil, fmt.Errorf("build file %s: %w", file, err)
			}
			if desc.Root == nil {
				desc.Root = decl
				continue
			}
			if desc.Root.Name != decl.Name {
				return nil, fmt.Errorf("build file %s: root project %q conflicts with %q declared earlier", file, decl.Name, desc.Root.Name)
			}
			merge(desc.Root, decl)
		}
	}

	if desc.Root == nil {
		return nil, fmt.Errorf("no project block found in %s", strings.Join(files, ", "))
	}
	logger.Debug("Build files loaded.", "root", desc.Root.Name, "files", len(files))
	return desc, nil
}

// translateProject converts a decoded block. Relative directories resolve
// against baseDir; the root project defaults to baseDir itself.
func (l *Loader) translateProject(pb *projectBlock, baseDir string, isRoot bool) (*ProjectDecl, error) {
	decl := &ProjectDecl{
		Name:         pb.Name,
		Apply:        pb.Apply,
		DefaultTasks: pb.DefaultTasks,
	}
	switch {
	case pb.Dir != nil && filepath.IsAbs(*pb.Dir):
		decl.Dir = filepath.Clean(*pb.Dir)
	case pb.Dir != nil:
		decl.Dir = filepath.Join(baseDir, *pb.Dir)
	case isRoot:
		decl.Dir = baseDir
	}
	if !isRoot && len(pb.DefaultTasks) > 0 {
		return nil, fmt.Errorf("project %q: default_tasks is only allowed on the root project", pb.Name)
	}

	for _, eb := range pb.Extensions {
		ext, err := l.translateExtension(eb)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", pb.Name, err)
		}
		decl.Extensions = append(decl.Extensions, ext)
	}
	for _, tb := range pb.Tasks {
		t, err := translateTask(tb)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", pb.Name, err)
		}
		decl.Tasks = append(decl.Tasks, t)
	}

	childBase := decl.Dir
	if childBase == "" {
		childBase = filepath.Join(baseDir, pb.Name)
	}
	for _, cb := range pb.Projects {
		child, err := l.translateProject(cb, childBase, false)
		if err != nil {
			return nil, err
		}
		if existing := findChild(decl, child.Name); existing != nil {
			merge(existing, child)
			continue
		}
		decl.Children = append(decl.Children, child)
	}
	return decl, nil
}

func (l *Loader) translateExtension(eb *extensionBlock) (*ExtensionDecl, error) {
	attrs, diags := eb.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("extension %q: %w", eb.Name, diags)
	}

	ext := &ExtensionDecl{Name: eb.Name, Values: make(map[string]cty.Value, len(attrs))}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(l.evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("extension %q: %w", eb.Name, diags)
		}
		ext.Values[name] = val
		ext.Keys = append(ext.Keys, name)
	}
	sort.Strings(ext.Keys)
	return ext, nil
}

func translateTask(tb *taskBlock) (*TaskDecl, error) {
	t := &TaskDecl{
		Name:        tb.Name,
		Command:     tb.Command,
		DependsOn:   tb.DependsOn,
		FinalizedBy: tb.FinalizedBy,
		Default:     tb.Default,
		Public:      tb.Public,
		Inputs:      tb.Inputs,
		Outputs:     tb.Outputs,
		Resources:   tb.Resources,
		Env:         tb.Env,
	}
	if tb.Description != nil {
		t.Description = *tb.Description
	}
	if tb.Group != nil {
		t.Group = *tb.Group
	}
	if tb.WorkingDir != nil {
		t.WorkingDir = *tb.WorkingDir
	}
	if tb.Timeout != nil {
		d, err := time.ParseDuration(*tb.Timeout)
		if err != nil {
			return nil, fmt.Errorf("task %q: invalid timeout: %w", tb.Name, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("task %q: timeout must be positive, got %s", tb.Name, d)
		}
		t.Timeout = d
	}
	return t, nil
}

func findChild(p *ProjectDecl, name string) *ProjectDecl {
	i := slices.IndexFunc(p.Children, func(c *ProjectDecl) bool { return c.Name == name })
	if i < 0 {
		return nil
	}
	return p.Children[i]
}

// merge folds src into dst, keeping declaration order.
func merge(dst, src *ProjectDecl) {
	if dst.Dir == "" {
		dst.Dir = src.Dir
	}
	dst.Apply = append(dst.Apply, src.Apply...)
	if len(src.DefaultTasks) > 0 {
		dst.DefaultTasks = src.DefaultTasks
	}
	dst.Extensions = append(dst.Extensions, src.Extensions...)
	dst.Tasks = append(dst.Tasks, src.Tasks...)
	for _, c := range src.Children {
		if existing := findChild(dst, c.Name); existing != nil {
			merge(existing, c)
			continue
		}
		dst.Children = append(dst.Children, c)
	}
}
