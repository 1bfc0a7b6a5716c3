package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/sweetpotato0/enrichrag/rag/document"
)

// maxIngestFileSize bounds a single file read into memory.
const maxIngestFileSize = 20 << 20

// documentIndex is the part of the retriever used by ingestion.
type documentIndex interface {
	IndexDocuments(ctx context.Context, docs ...document.Document) (int, error)
	DeleteSource(ctx context.Context, sourceID string) (int, error)
}

type ingestStats struct {
	Files   int
	Skipped int
	Chunks  int
	Bytes   uint64
}

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index text, Markdown and HTML files",
	Long: `Indexes files and directories into the configured vector store. Files are
detected by content; anything that is not text (PDF, images, archives) is
skipped. Re-ingesting a file replaces its previous chunks.

Ingestion into the in-memory store is lost when the command exits; configure
vector_store.type = "pgvector" to persist it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep running and re-index files as they change")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	stats, err := ingestPaths(ctx, app.retriever, args, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if stats.Files == 0 {
		return fmt.Errorf("no text documents found in %s", strings.Join(args, ", "))
	}
	if !ingestWatch {
		return nil
	}
	cmd.Println("Watching for changes, press Ctrl+C to stop.")
	return watchPaths(ctx, app.retriever, args, app.logger)
}

// ingestPaths indexes every text file under paths and prints a summary to out.
func ingestPaths(ctx context.Context, index documentIndex, paths []string, out io.Writer) (ingestStats, error) {
	var stats ingestStats
	start := time.Now()
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			n, size, err := ingestFile(ctx, index, path)
			switch {
			case err != nil:
				return err
			case n == 0:
				stats.Skipped++
			default:
				stats.Files++
				stats.Chunks += n
				stats.Bytes += size
			}
			return nil
		})
		if err != nil {
			return stats, fmt.Errorf("ingest %s: %w", root, err)
		}
	}
	fmt.Fprintf(out, "Indexed %s files (%s chunks, %s) in %s, skipped %d\n",
		humanize.Comma(int64(stats.Files)),
		humanize.Comma(int64(stats.Chunks)),
		humanize.Bytes(stats.Bytes),
		time.Since(start).Round(time.Millisecond),
		stats.Skipped,
	)
	return stats, nil
}

// ingestFile indexes one file and returns the chunk count, or 0 when the
// file is not a text document.
func ingestFile(ctx context.Context, index documentIndex, path string) (int, uint64, error) {
	doc, ok, err := loadDocument(path)
	if err != nil || !ok {
		return 0, 0, err
	}
	n, err := index.IndexDocuments(ctx, doc)
	if err != nil {
		return 0, 0, err
	}
	return n, uint64(len(doc.Content)), nil
}

// loadDocument reads path when its content is text. HTML is kept as markup;
// the retriever converts it while indexing.
func loadDocument(path string) (document.Document, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return document.Document{}, false, err
	}
	if info.Size() == 0 || info.Size() > maxIngestFileSize {
		return document.Document{}, false, nil
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return document.Document{}, false, fmt.Errorf("detect %s: %w", path, err)
	}
	if !isText(mtype) {
		return document.Document{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, false, err
	}
	return document.Document{
		ID:      documentID(path),
		Title:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Content: string(data),
		Metadata: map[string]any{
			"path":      path,
			"mime_type": mtype.String(),
		},
	}, true, nil
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// documentID derives a stable source id from the file path.
func documentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file:" + filepath.ToSlash(filepath.Clean(path))
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
