package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/nikbrunner/cm/internal/api"
	"github.com/nikbrunner/cm/internal/culler"
	"github.com/nikbrunner/cm/internal/exporter"
	"github.com/nikbrunner/cm/internal/importer"
	"github.com/nikbrunner/cm/internal/model"
	"github.com/nikbrunner/cm/internal/picker"
	"github.com/nikbrunner/cm/internal/search"
	"github.com/nikbrunner/cm/internal/storage"
	"github.com/nikbrunner/cm/internal/view"
)

func main() {
	if len(os.Args) < 2 {
		run("ls", nil)
		return
	}
	run(os.Args[1], os.Args[2:])
}

func run(cmd string, args []string) {
	switch cmd {
	case "help", "--help", "-h":
		printHelp()
	case "ls":
		runList(args)
	case "add":
		runAdd(args)
	case "rm":
		runRemove(args)
	case "rename":
		runRename(args)
	case "mv":
		runMove(args)
	case "mkdir":
		runMkdir(args)
	case "rmdir":
		runRmdir(args)
	case "reorder":
		runReorder(args)
	case "drop":
		runDrop(args)
	case "file":
		runFile(args)
	case "export":
		runExport(args)
	case "import":
		runImport(args)
	case "search":
		runSearch(args)
	case "check":
		runCheck(args)
	case "serve":
		runServe(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	help := `cm - code bookmarks organised in folders

Usage:
  cm                              List all bookmarks and folders
  cm ls [folder]                  List the tree, or the subtree of a folder
  cm add [-f folder] [-c col] <document> <line> [name]
                                  Bookmark a line (line and column are 1-based)
  cm rm <bookmark>                Remove a bookmark
  cm rename <item> <name>         Rename a bookmark or folder
  cm mv <item> [folder]           Move an item into a folder (root if omitted)
  cm mkdir [-p parent] <name>     Create a folder
  cm rmdir <folder>               Delete a folder, its children move up a level
  cm reorder <item> <from> <to>   Move the child at index from to index to (0-based)
  cm drop [-n] <source> [target]  Drop source onto target as a tree view would
  cm file <document>              List bookmarks in a document by position
  cm export [-html] [path]        Export to JSON (.zst compresses) or HTML
  cm import <path>                Replace all bookmarks with an export
  cm search [-y] [query]          Fuzzy search and pick a bookmark
  cm check                        Report bookmarks whose document moved or shrank
  cm serve [-addr host:port]      Serve the HTTP API
  cm help                         Show this help

Items are referred to by id or a unique id prefix, as shown by cm ls.

Configuration:
  ~/.config/cm/config.json (override with $CM_CONFIG)
`
	fmt.Print(help)
}

// app bundles the opened storage and store for one command.
type app struct {
	cfg     *storage.Config
	storage storage.Storage
	store   *model.Store
}

func openApp() *app {
	configPath, err := storage.DefaultConfigFilePath()
	if err != nil {
		fatalf("Error getting config path: %v", err)
	}

	cfg, err := storage.LoadConfig(configPath)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	commonlog.Configure(cfg.LogVerbosity, nil)

	st, err := storage.OpenStorage(cfg)
	if err != nil {
		fatalf("Error opening storage: %v", err)
	}

	store, err := model.Open(st)
	if err != nil {
		st.Close()
		fatalf("Error loading bookmarks: %v", err)
	}

	return &app{cfg: cfg, storage: st, store: store}
}

func (a *app) close() {
	if err := a.storage.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing storage: %v\n", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func usage(line string) {
	fatalf("Usage: %s", line)
}

// resolve turns an id or id prefix into a full id, optionally requiring a kind.
func (a *app) resolve(ref string, want ...model.ItemKind) (string, model.ItemKind) {
	id, kind, err := a.store.Resolve(ref)
	if err != nil {
		a.close()
		fatalf("Error: %v", err)
	}
	if len(want) > 0 && kind != want[0] {
		a.close()
		fatalf("Error: %s is a %s, expected a %s", ref, kind, want[0])
	}
	return id, kind
}

func (a *app) resolveFolder(ref string) *string {
	if ref == "" {
		return nil
	}
	id, _ := a.resolve(ref, model.KindFolder)
	return &id
}

func (a *app) check(err error) {
	if err != nil {
		a.close()
		fatalf("Error: %v", err)
	}
}

// documentRef turns a CLI path into the stored document reference.
// URIs are kept; local paths are made absolute.
func documentRef(arg string) string {
	if strings.Contains(arg, "://") {
		return arg
	}
	if abs, err := filepath.Abs(arg); err == nil {
		return abs
	}
	return arg
}

// oneBased parses a 1-based number from the command line into a 0-based one.
func oneBased(name, s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		fatalf("Error: %s must be a positive number, got %q", name, s)
	}
	return n - 1
}

func runList(args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	fs.Parse(args)

	a := openApp()
	defer a.close()

	folder := a.resolveFolder(fs.Arg(0))
	a.check(view.New(a.store).Render(os.Stdout, folder))
}

func runAdd(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	folderRef := fs.String("f", "", "folder id or prefix")
	column := fs.Int("c", 1, "column (1-based)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		usage("cm add [-f folder] [-c col] <document> <line> [name]")
	}
	if *column < 1 {
		fatalf("Error: column must be a positive number, got %d", *column)
	}

	loc := model.Location{
		DocumentRef: documentRef(fs.Arg(0)),
		Line:        oneBased("line", fs.Arg(1)),
		Column:      *column - 1,
	}
	name := strings.Join(fs.Args()[2:], " ")
	if name == "" {
		name = loc.Short()
	}

	a := openApp()
	defer a.close()

	id, err := a.store.AddBookmark(loc, name, a.resolveFolder(*folderRef))
	a.check(err)
	fmt.Printf("Added %s %s (%s)\n", shortID(id), name, loc)
}

func runRemove(args []string) {
	if len(args) != 1 {
		usage("cm rm <bookmark>")
	}

	a := openApp()
	defer a.close()

	id, _ := a.resolve(args[0], model.KindBookmark)
	name := a.store.GetBookmark(id).Name
	a.check(a.store.RemoveBookmark(id))
	fmt.Printf("Removed %s\n", name)
}

func runRename(args []string) {
	if len(args) < 2 {
		usage("cm rename <item> <name>")
	}
	name := strings.Join(args[1:], " ")

	a := openApp()
	defer a.close()

	id, kind := a.resolve(args[0])
	if kind == model.KindFolder {
		a.check(a.store.RenameFolder(id, name))
	} else {
		a.check(a.store.RenameBookmark(id, name))
	}
	fmt.Printf("Renamed %s to %s\n", kind, name)
}

func runMove(args []string) {
	if len(args) < 1 || len(args) > 2 {
		usage("cm mv <item> [folder]")
	}

	a := openApp()
	defer a.close()

	id, kind := a.resolve(args[0])
	var target *string
	if len(args) == 2 {
		target = a.resolveFolder(args[1])
	}

	if kind == model.KindFolder {
		a.check(a.store.MoveFolder(id, target))
	} else {
		a.check(a.store.MoveBookmark(id, target))
	}
	fmt.Printf("Moved %s to %s\n", kind, containerName(a.store, target))
}

func containerName(store *model.Store, id *string) string {
	if id == nil {
		return "root"
	}
	if f := store.GetFolder(*id); f != nil {
		return f.Name
	}
	return *id
}

func runMkdir(args []string) {
	fs := flag.NewFlagSet("mkdir", flag.ExitOnError)
	parentRef := fs.String("p", "", "parent folder id or prefix")
	fs.Parse(args)

	if fs.NArg() < 1 {
		usage("cm mkdir [-p parent] <name>")
	}
	name := strings.Join(fs.Args(), " ")

	a := openApp()
	defer a.close()

	id, err := a.store.CreateFolder(name, a.resolveFolder(*parentRef))
	a.check(err)
	fmt.Printf("Created %s %s/\n", shortID(id), name)
}

func runRmdir(args []string) {
	if len(args) != 1 {
		usage("cm rmdir <folder>")
	}

	a := openApp()
	defer a.close()

	id, _ := a.resolve(args[0], model.KindFolder)
	name := a.store.GetFolder(id).Name
	a.check(a.store.DeleteFolder(id))
	fmt.Printf("Deleted %s/\n", name)
}

func runReorder(args []string) {
	if len(args) != 3 {
		usage("cm reorder <item> <from> <to>")
	}
	from, err1 := strconv.Atoi(args[1])
	to, err2 := strconv.Atoi(args[2])
	if err := errors.Join(err1, err2); err != nil {
		fatalf("Error: from and to must be numbers: %v", err)
	}

	a := openApp()
	defer a.close()

	id, _ := a.resolve(args[0])
	a.check(a.store.ReorderBySplice(id, from, to))

	container, _ := a.store.ContainerOf(id)
	a.check(view.New(a.store).Render(os.Stdout, container))
}

func runDrop(args []string) {
	fs := flag.NewFlagSet("drop", flag.ExitOnError)
	dryRun := fs.Bool("n", false, "print the resolved action without applying it")
	fs.Parse(args)

	if fs.NArg() < 1 || fs.NArg() > 2 {
		usage("cm drop [-n] <source> [target]")
	}

	a := openApp()
	defer a.close()

	p := view.New(a.store)
	sourceID, _ := a.resolve(fs.Arg(0))
	source, _ := p.Lookup(sourceID)

	var target *view.Item
	if fs.NArg() == 2 {
		targetID, _ := a.resolve(fs.Arg(1))
		t, _ := p.Lookup(targetID)
		target = &t
	}

	in := p.ResolveDrop(source, target)
	if !*dryRun {
		a.check(view.Apply(a.store, in))
	}
	fmt.Println(in)
}

func runFile(args []string) {
	if len(args) != 1 {
		usage("cm file <document>")
	}

	a := openApp()
	defer a.close()

	for _, b := range a.store.GetBookmarksForFile(documentRef(args[0])) {
		fmt.Printf("%s  %d:%d  %s\n", shortID(b.ID), b.Location.Line+1, b.Location.Column+1, b.Name)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	asHTML := fs.Bool("html", false, "export Netscape bookmark HTML")
	fs.Parse(args)

	outputPath := fs.Arg(0)
	if outputPath == "" {
		var err error
		outputPath, err = exporter.DefaultExportPath()
		if err != nil {
			fatalf("Error getting default export path: %v", err)
		}
		if *asHTML {
			outputPath = strings.TrimSuffix(outputPath, ".json") + ".html"
		}
	}

	a := openApp()
	defer a.close()

	if *asHTML {
		html := exporter.ExportHTML(view.New(a.store))
		a.check(os.WriteFile(outputPath, []byte(html), 0644))
	} else {
		a.check(exporter.WriteFile(outputPath, a.store.Export()))
	}

	nb, nf := a.store.Len()
	fmt.Printf("Exported %d bookmarks, %d folders to %s\n", nb, nf, outputPath)
}

func runImport(args []string) {
	if len(args) != 1 {
		usage("cm import <file.json|file.json.zst|file.html>")
	}

	doc, err := importer.ReadFile(args[0])
	if err != nil {
		fatalf("Error reading %s: %v", args[0], err)
	}

	a := openApp()
	defer a.close()

	res := a.store.Import(doc)
	if !res.Success {
		a.close()
		fatalf("Error: %s", res.Message)
	}
	fmt.Println(res.Message)
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	yank := fs.Bool("y", false, "copy the selected location to the clipboard")
	fs.Parse(args)
	query := strings.Join(fs.Args(), " ")

	a := openApp()
	defer a.close()

	bookmarks := a.store.GetAllBookmarks()
	results := search.FuzzySearchBookmarks(bookmarks, query)
	if query != "" && len(results) == 0 {
		fmt.Printf("No bookmarks found for '%s'\n", query)
		return
	}

	var selected *model.Bookmark
	if len(results) == 1 {
		// Single result - select it directly
		selected = results[0].Bookmark
	} else {
		program := tea.NewProgram(picker.New(bookmarks, query))
		finalModel, err := program.Run()
		a.check(err)

		finalPicker := finalModel.(picker.Picker)
		if finalPicker.Cancelled() {
			return
		}
		selected = finalPicker.SelectedBookmark()
	}

	if selected == nil {
		return
	}

	location := selected.Location.String()
	if *yank {
		a.check(clipboard.WriteAll(location))
	}
	fmt.Println(location)
}

func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	concurrency := fs.Int("j", 0, "parallel checks (default from config)")
	fs.Parse(args)

	a := openApp()
	defer a.close()

	if *concurrency <= 0 {
		*concurrency = a.cfg.CheckConcurrency
	}

	results := culler.CheckBookmarks(a.store.GetAllBookmarks(), *concurrency, func(completed, total int) {
		fmt.Fprintf(os.Stderr, "\rChecking %d/%d", completed, total)
	})
	if len(results) > 0 {
		fmt.Fprintln(os.Stderr)
	}

	bad := 0
	for _, r := range results {
		if r.Status == culler.Healthy {
			continue
		}
		bad++
		detail := r.Error
		if r.Status == culler.Drifted {
			detail = fmt.Sprintf("document has %d lines", r.Lines)
		}
		fmt.Printf("%-11s %s  %s  %s (%s)\n", r.Status, shortID(r.Bookmark.ID), r.Bookmark.Name, r.Bookmark.Location, detail)
	}
	fmt.Printf("%d of %d bookmarks need attention\n", bad, len(results))
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (default from config)")
	fs.Parse(args)

	a := openApp()
	defer a.close()

	if *addr == "" {
		*addr = a.cfg.ListenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.check(api.NewServer(a.store).ListenAndServe(ctx, *addr))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
