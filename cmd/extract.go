// -- cmd/extract.go --
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/paperlens/api/schemas"
	"github.com/xkilldash9x/paperlens/internal/extraction"
	"github.com/xkilldash9x/paperlens/internal/llmclient"
	"github.com/xkilldash9x/paperlens/internal/observability"
	"github.com/xkilldash9x/paperlens/internal/store"
)

var (
	extractURLs     []string
	extractorChoice string
	outputDir       string
	downloadTimeout = 2 * time.Minute
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Run the extraction pipeline over papers given as files or URLs.",
	Long: `Extract runs the multi-stage pipeline (text extraction, characterization,
component extraction, relationship extraction, diagram generation) over each
input and writes a JSON record plus a Mermaid diagram per paper.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && len(extractURLs) == 0 {
			return fmt.Errorf("provide at least one file argument or --url")
		}
		return nil
	},
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringArrayVar(&extractURLs, "url", nil, "paper URL to download and process (repeatable)")
	extractCmd.Flags().StringVar(&extractorChoice, "extractor", "auto", "text extractor: pdf, text, or auto")
	extractCmd.Flags().StringVarP(&outputDir, "out", "o", ".", "directory for output artifacts")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	router, err := llmclient.NewRouterFromConfig(appCfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("building LLM client: %w", err)
	}
	defer router.Close()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	papers := store.NewMemoryStore(logger)
	svc := extraction.NewService(router, papers, logger, appCfg.Pipeline)

	ctx := cmd.Context()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(appCfg.Pipeline.Concurrency)

	var inputs []paperInput
	for _, path := range args {
		inputs = append(inputs, paperInput{path: path})
	}
	for _, u := range extractURLs {
		inputs = append(inputs, paperInput{url: u})
	}

	failures := make([]error, len(inputs))
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			if err := processInput(ctx, svc, papers, logger, input); err != nil {
				logger.Error("Paper processing failed",
					zap.String("input", input.String()), zap.Error(err))
				failures[i] = err
			}
			// Individual failures don't cancel sibling runs.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, err := range failures {
		if err != nil {
			failed++
		}
	}
	logger.Info("Extraction batch complete",
		zap.Int("total", len(inputs)), zap.Int("failed", failed))
	if failed == len(inputs) {
		return fmt.Errorf("all %d paper(s) failed", failed)
	}
	return nil
}

// paperInput is one unit of work: a local file or a URL.
type paperInput struct {
	path string
	url  string
}

func (p paperInput) String() string {
	if p.url != "" {
		return p.url
	}
	return p.path
}

func processInput(ctx context.Context, svc *extraction.Service, papers *store.MemoryStore, logger *zap.Logger, input paperInput) error {
	var tempPath, title string
	var err error

	if input.url != "" {
		tempPath, title, err = downloadPaper(ctx, input.url)
	} else {
		tempPath, err = stageLocalFile(input.path)
		title = strings.TrimSuffix(filepath.Base(input.path), filepath.Ext(input.path))
	}
	if err != nil {
		return err
	}

	paper := schemas.NewPaper(title)
	paper.URL = input.url
	papers.Add(paper)

	// Process owns the temp file from here and removes it on every path.
	svc.Process(ctx, paper, tempPath, extractorChoice)

	if err := writeArtifacts(paper, title); err != nil {
		return err
	}
	if paper.Status == schemas.StatusFailed || paper.Status == schemas.StatusError {
		return fmt.Errorf("pipeline failed (%s): %s", paper.ErrorKind, paper.Error)
	}
	logger.Info("Paper processed",
		zap.String("paper_id", paper.ID),
		zap.String("status", string(paper.Status)),
	)
	return nil
}

// stageLocalFile copies the input into a temp file so the pipeline's cleanup
// never touches the caller's original.
func stageLocalFile(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening input file: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "paperlens-*"+filepath.Ext(path))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("staging input file: %w", err)
	}
	return tmp.Name(), nil
}

// downloadPaper fetches a paper URL into a temp file. The extension is taken
// from the URL path so extractor auto-detection still works.
func downloadPaper(ctx context.Context, rawURL string) (string, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", "", fmt.Errorf("invalid paper URL: %q", rawURL)
	}

	reqCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("downloading paper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("downloading paper: unexpected status %d", resp.StatusCode)
	}

	ext := filepath.Ext(parsed.Path)
	if ext == "" {
		ext = ".pdf"
	}
	tmp, err := os.CreateTemp("", "paperlens-*"+ext)
	if err != nil {
		return "", "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("saving downloaded paper: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(parsed.Path), ext)
	if title == "" || title == "/" {
		title = parsed.Host
	}
	return tmp.Name(), title, nil
}

// writeArtifacts stores the paper record as JSON and, when present, the
// diagram as a .mmd file in the output directory.
func writeArtifacts(paper *schemas.Paper, title string) error {
	base := sanitizeFilename(title)
	if base == "" {
		base = paper.ID
	}

	record, err := json.MarshalIndent(paper, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding paper record: %w", err)
	}
	jsonPath := filepath.Join(outputDir, base+".json")
	if err := os.WriteFile(jsonPath, record, 0o644); err != nil {
		return fmt.Errorf("writing paper record: %w", err)
	}

	if paper.Diagram != nil && paper.Diagram.Source != "" {
		mmdPath := filepath.Join(outputDir, base+".mmd")
		if err := os.WriteFile(mmdPath, []byte(paper.Diagram.Source), 0o644); err != nil {
			return fmt.Errorf("writing diagram: %w", err)
		}
	}
	return nil
}

// sanitizeFilename strips path separators and other unsafe characters.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer("/", "-", "\\", "-", "..", "-", " ", "_", ":", "-")
	return replacer.Replace(name)
}
