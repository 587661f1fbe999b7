// riffdump 打印 RIFF 家族容器 (AVI/AVIX/AMV/ON2) 的块树。
//
// 用法:
//
//	riffdump [--strict] [--strict-size] [--format tree|json|cbor] [--summary] file...
//
// 解析在 mmap 映射上进行，不复制负载。块序列中途出错时仍输出已解析的前缀，
// 退出码为 2；容器头无法识别时退出码为 1。
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"riffscope/internal/avi"
	"riffscope/internal/codec"
	"riffscope/internal/config"
	"riffscope/internal/riff"
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var (
		strict     bool
		strictSize bool
		format     string
		summary    bool
		maxDepth   int
		debug      bool
	)

	flagSet := pflag.NewFlagSet("riffdump", pflag.ContinueOnError)
	flagSet.BoolVar(&strict, "strict", false, "fail on unknown LIST types instead of treating them as opaque")
	flagSet.BoolVar(&strictSize, "strict-size", false, "fail when the declared file size exceeds the file")
	flagSet.StringVarP(&format, "format", "f", "tree", "output format: tree, json or cbor")
	flagSet.BoolVarP(&summary, "summary", "s", false, "print per-stream statistics after the tree")
	flagSet.IntVar(&maxDepth, "max-depth", config.DefaultMaxDepth, "maximum movi nesting depth")
	flagSet.BoolVar(&debug, "debug", false, "enable debug logging on stderr")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() == 0 {
		return fmt.Errorf("usage: riffdump [flags] file...\n%s", flagSet.FlagUsages())
	}
	switch format {
	case "tree", "json", "cbor":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	avi.SetLogOutput(os.Stderr)
	avi.SetDebugMode(debug)

	opts := riff.Options{
		StrictListTypes: strict,
		StrictFileSize:  strictSize,
		MaxDepth:        maxDepth,
	}

	var partial error
	for _, path := range flagSet.Args() {
		in, err := avi.Inspect(path, opts)
		if err != nil {
			return &exitError{code: 1, err: err}
		}
		if err := dump(stdout, in, format, summary); err != nil {
			return err
		}
		if in.Partial() && partial == nil {
			partial = &exitError{code: 2, err: fmt.Errorf("%s: %s", filepath.Base(path), in.Err)}
		}
	}
	return partial
}

func dump(w io.Writer, in *avi.Inspection, format string, summary bool) error {
	doc := codec.NewDocument(in)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "cbor":
		return codec.NewEncoder(w).Encode(doc)
	}

	fmt.Fprintf(w, "%s: %s %q size=%d (%d bytes on disk)\n",
		in.Name, in.Container.Magic1, in.Container.Magic2, in.Container.FileSize, in.Size)
	for _, r := range doc.Chunks {
		indent := strings.Repeat("  ", int(r.Depth)+1)
		if r.ListType != "" {
			fmt.Fprintf(w, "%s%s %q @%d size=%d\n", indent, r.Tag, r.ListType, r.Offset, r.Size)
		} else {
			fmt.Fprintf(w, "%s%q @%d size=%d\n", indent, r.Tag, r.Offset, r.Size)
		}
	}
	if in.Partial() {
		fmt.Fprintf(w, "  ! %s\n", in.Err)
	}

	if summary {
		s := in.Summary
		fmt.Fprintf(w, "  chunks=%d top-level=%d lists=%d movi-children=%d max-depth=%d\n",
			s.Total, s.TopLevel, s.Lists, s.MoviChunks, s.MaxDepth)
		for _, st := range s.Streams {
			fmt.Fprintf(w, "  stream %02d %s: %d chunks, %d bytes\n", st.Stream, st.Kind, st.Chunks, st.Bytes)
		}
	}
	return nil
}
