// Command dbshell is a tiny line-oriented shell for exercising a
// BufferPool/HeapFile/Catalog setup interactively. It is not a SQL
// shell: there is no parser, only a fixed handful of verbs.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/relstore/relstore"
)

type shell struct {
	dir     string
	bp      *relstore.BufferPool
	catalog *relstore.MapCatalog
	tid     relstore.TxnId
}

func main() {
	dir, err := os.MkdirTemp("", "dbshell-")
	if err != nil {
		fmt.Fprintln(os.Stderr, "dbshell:", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	bp, err := relstore.NewBufferPool(relstore.DefaultPages)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dbshell:", err)
		os.Exit(1)
	}

	sh := &shell{
		dir:     dir,
		bp:      bp,
		catalog: relstore.NewMapCatalog(),
	}
	if err := sh.beginTxn(); err != nil {
		fmt.Fprintln(os.Stderr, "dbshell:", err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "relstore> ",
		HistoryFile: filepath.Join(dir, ".history"),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "dbshell:", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("relstore dbshell — create/insert/scan/stats/commit/abort/quit")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := sh.dispatch(line); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func (s *shell) beginTxn() error {
	s.tid = relstore.NewTxnId()
	return s.bp.BeginTransaction(s.tid)
}

func (s *shell) dispatch(line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "create":
		return s.create(args)
	case "insert":
		return s.insert(args)
	case "scan":
		return s.scan(args)
	case "stats":
		return s.stats(args)
	case "commit":
		err := s.bp.CommitTransaction(s.tid)
		if err != nil {
			return err
		}
		return s.beginTxn()
	case "abort":
		s.bp.AbortTransaction(s.tid)
		return s.beginTxn()
	case "quit", "exit":
		os.Exit(0)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// create <table> <field:kind>...  e.g. create students id:int name:string
func (s *shell) create(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: create <table> <field:kind>...")
	}
	name := args[0]
	var kinds []relstore.FieldKind
	var names []string
	for _, spec := range args[1:] {
		parts := strings.SplitN(spec, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("bad field spec %q, want name:kind", spec)
		}
		names = append(names, parts[0])
		switch strings.ToLower(parts[1]) {
		case "int":
			kinds = append(kinds, relstore.IntKind)
		case "string":
			kinds = append(kinds, relstore.StringKind)
		default:
			return fmt.Errorf("unknown field kind %q", parts[1])
		}
	}
	desc := relstore.NewTupleDesc(kinds, names)
	path := filepath.Join(s.dir, name+".dat")
	hf, err := relstore.NewHeapFile(path, desc, s.bp)
	if err != nil {
		return err
	}
	s.catalog.Add(name, hf)
	fmt.Printf("created table %q (tableId=%d)\n", name, hf.TableId())
	return nil
}

func (s *shell) insert(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: insert <table> <value>...")
	}
	name := args[0]
	hf, ok := s.catalog.AccessMethodByName(name)
	if !ok {
		return fmt.Errorf("no such table %q", name)
	}
	desc := hf.Descriptor()
	if len(args)-1 != len(desc.Fields) {
		return fmt.Errorf("table %q expects %d fields, got %d", name, len(desc.Fields), len(args)-1)
	}

	fields := make([]relstore.Field, len(desc.Fields))
	for i, raw := range args[1:] {
		switch desc.Fields[i].Kind {
		case relstore.IntKind:
			v, err := strconv.ParseInt(raw, 10, 32)
			if err != nil {
				return fmt.Errorf("field %d: %w", i, err)
			}
			fields[i] = relstore.IntField{Value: int32(v)}
		case relstore.StringKind:
			fields[i] = relstore.NewStringField(raw)
		}
	}

	t, err := relstore.NewTuple(desc, fields)
	if err != nil {
		return err
	}
	if err := s.bp.InsertTuple(s.tid, hf, t); err != nil {
		return err
	}
	fmt.Println("inserted 1 row")
	return nil
}

func (s *shell) scan(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: scan <table>")
	}
	hf, ok := s.catalog.AccessMethodByName(args[0])
	if !ok {
		return fmt.Errorf("no such table %q", args[0])
	}
	iter, err := hf.Iterator(s.tid)
	if err != nil {
		return err
	}
	n := 0
	for {
		t, err := iter()
		if err != nil {
			return err
		}
		if t == nil {
			break
		}
		fmt.Println(formatTuple(t))
		n++
	}
	fmt.Printf("%d row(s)\n", n)
	return nil
}

func (s *shell) stats(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stats <table>")
	}
	hf, ok := s.catalog.AccessMethodByName(args[0])
	if !ok {
		return fmt.Errorf("no such table %q", args[0])
	}
	ts, err := relstore.ComputeTableStats(s.bp, hf)
	if err != nil {
		return err
	}
	fmt.Printf("scanCost=%.1f cardinality(sel=1.0)=%d\n", ts.EstimateScanCost(), ts.EstimateCardinality(1.0))
	return nil
}

func formatTuple(t *relstore.Tuple) string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		switch v := f.(type) {
		case relstore.IntField:
			parts[i] = strconv.FormatInt(int64(v.Value), 10)
		case relstore.StringField:
			parts[i] = v.Value
		}
	}
	return strings.Join(parts, "\t")
}
