// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrImportNotFound is returned by an ImportResolver when no file
	// matches an import path.
	ErrImportNotFound = errors.New("import not found")

	// ErrStale reports an analysis pass abandoned because its document was
	// edited before the pass completed.
	ErrStale = errors.New("document changed during analysis")

	ErrUnknownDocument = errors.New("unknown document")
)

// ImportResolver locates and reads the target of an import statement. It is
// called from background goroutines, never while an edit is applied.
type ImportResolver interface {
	// Load returns the URI and text of the file that path refers to when
	// imported from the document at from.
	Load(ctx context.Context, from string, path string) (uri string, text string, err error)
}

// FSResolver resolves imports against a file system: relative to the
// importing document first, then relative to each search path. URIs are
// file paths.
type FSResolver struct {
	Fs          afero.Fs
	SearchPaths []string

	// MaxSize rejects larger files, when non-zero.
	MaxSize int64
}

var _ ImportResolver = (*FSResolver)(nil)

func NewFSResolver(fs afero.Fs, searchPaths ...string) *FSResolver {
	return &FSResolver{
		Fs:          fs,
		SearchPaths: searchPaths,
	}
}

func (r *FSResolver) Load(ctx context.Context, from string, path string) (string, string, error) {
	for _, candidate := range r.candidates(from, path) {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		text, err := r.read(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", "", err
		}
		return candidate, text, nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrImportNotFound, path)
}

func (r *FSResolver) candidates(from string, path string) []string {
	path = filepath.FromSlash(path)
	if filepath.IsAbs(path) {
		return []string{filepath.Clean(path)}
	}
	from = strings.TrimPrefix(from, "file://")
	candidates := make([]string, 0, len(r.SearchPaths)+1)
	candidates = append(candidates, filepath.Join(filepath.Dir(from), path))
	for _, dir := range r.SearchPaths {
		candidates = append(candidates, filepath.Join(dir, path))
	}
	return candidates
}

func (r *FSResolver) read(name string) (string, error) {
	info, err := r.Fs.Stat(name)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	if r.MaxSize > 0 && info.Size() > r.MaxSize {
		return "", fmt.Errorf("%s is larger than %d bytes", name, r.MaxSize)
	}
	data, err := afero.ReadFile(r.Fs, name)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}
