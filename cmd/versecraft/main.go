// Command versecraft annotates a transcribed song: it ingests timed
// speech-to-text words and detected chord segments, derives rhyme groups,
// syllable counts and a width-aware line layout, optionally asks an LLM for
// alternative lyrics, and writes the annotated document as JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/versecraft/internal/altlyrics"
	"github.com/MrWong99/versecraft/internal/config"
	"github.com/MrWong99/versecraft/internal/health"
	"github.com/MrWong99/versecraft/internal/observe"
	"github.com/MrWong99/versecraft/internal/reflow"
	"github.com/MrWong99/versecraft/internal/rhyme"
	"github.com/MrWong99/versecraft/internal/store"
	"github.com/MrWong99/versecraft/internal/syllable"
	"github.com/MrWong99/versecraft/pkg/lyrics"
	"github.com/MrWong99/versecraft/pkg/phonetic"
	"github.com/MrWong99/versecraft/pkg/songio"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (optional, defaults apply)")
	transcriptPath := flag.String("transcript", "", "path to the transcript word list JSON (required)")
	chordsPath := flag.String("chords", "", "path to the chord segment JSON (optional)")
	outPath := flag.String("out", "annotated.json", "output path for the annotated document, or - for stdout")
	widthFlag := flag.Float64("width", 0, "container width override for line re-flow")
	altFlag := flag.Bool("alt", false, "request alternative lyrics from the configured LLM provider")
	flag.Parse()

	if *transcriptPath == "" {
		fmt.Fprintln(os.Stderr, "versecraft: -transcript is required")
		flag.Usage()
		return 2
	}

	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "versecraft: %v\n", err)
			return 1
		}
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.Slog(),
	}))
	slog.SetDefault(logger)

	width := cfg.Editor.Width
	if *widthFlag > 0 {
		width = *widthFlag
	}

	slog.Info("versecraft starting",
		"transcript", *transcriptPath,
		"chords", *chordsPath,
		"width", width,
		"alt_lyrics", *altFlag,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx)
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Phonetic dictionary ───────────────────────────────────────────────────
	index, err := loadDictionary(ctx, cfg.Dictionary.Path, metrics)
	if err != nil {
		slog.Error("failed to load phonetic dictionary", "path", cfg.Dictionary.Path, "err", err)
		return 1
	}
	slog.Info("phonetic dictionary ready", "entries", index.Len())

	if cfg.Server.MetricsAddr != "" {
		srv := newMetricsServer(cfg.Server.MetricsAddr, metrics, index)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics listener error", "err", err)
			}
		}()
		defer srv.Close()
		slog.Info("metrics listener started", "addr", cfg.Server.MetricsAddr)
	}

	// ── Ingest ────────────────────────────────────────────────────────────────
	ingestCtx, ingestSpan := observe.StartPhase(ctx, "ingest")
	tokens, err := importTranscript(*transcriptPath)
	if err != nil {
		ingestSpan.End()
		slog.Error("failed to import transcript", "err", err)
		return 1
	}
	slog.Info("transcript imported", "words", len(tokens))

	var chords []lyrics.Chord
	if *chordsPath != "" {
		chords, err = importChords(*chordsPath)
		if err != nil {
			ingestSpan.End()
			slog.Error("failed to import chords", "err", err)
			return 1
		}
		slog.Info("chords imported", "segments", len(chords))
	}

	logUnknownWords(ingestCtx, index, tokens, metrics)
	ingestSpan.SetAttributes(observe.WordsAttr(len(tokens)))
	ingestSpan.End()

	// ── Annotation store ──────────────────────────────────────────────────────
	engine := reflow.New(runeWidth,
		reflow.WithSeparatorWidth(cfg.Editor.SeparatorWidth),
		reflow.WithMinWidth(cfg.Editor.MinWidth),
	)
	st := store.New(rhyme.New(index), syllable.New(index), engine,
		store.WithDebounce(cfg.Editor.Debounce()),
		store.WithWidth(width),
		store.WithMetrics(metrics),
		store.WithLogger(logger),
	)
	defer st.Close()

	snapshots := make(chan store.Snapshot, 16)
	st.Subscribe(func(s store.Snapshot) {
		select {
		case snapshots <- s:
		default:
		}
	})

	st.ReplaceAll(tokens)
	if len(chords) > 0 {
		st.AssignChords(chords)
	}

	// ── Alternative lyrics (optional) ─────────────────────────────────────────
	if *altFlag {
		if !cfg.AltLyrics.Enabled() {
			slog.Error("-alt requested but no alt_lyrics provider is configured")
			return 1
		}
		if err := requestAlternatives(ctx, cfg.AltLyrics, st, metrics); err != nil {
			slog.Error("alternative lyrics request failed", "err", err)
			return 1
		}
	}

	// ── Wait for the coalesced recompute, then export ─────────────────────────
	snap, ok := awaitQuiescence(ctx, snapshots, cfg.Editor.Debounce())
	if !ok {
		slog.Error("no annotation snapshot produced")
		return 1
	}

	_, exportSpan := observe.StartPhase(ctx, "export",
		observe.RevisionAttr(snap.Revision),
		observe.WordsAttr(len(snap.Tokens)),
		observe.LinesAttr(len(snap.Lines)),
	)
	err = writeDocument(*outPath, snap)
	exportSpan.End()
	if err != nil {
		slog.Error("failed to write annotated document", "err", err)
		return 1
	}

	slog.Info("annotated document written",
		"out", *outPath,
		"revision", snap.Revision,
		"words", len(snap.Tokens),
		"lines", len(snap.Lines),
		"rhyme_groups", len(snap.RhymeGroups),
	)
	return 0
}

// runeWidth measures editor text in display cells, one per rune.
func runeWidth(text string) float64 {
	return float64(utf8.RuneCountInString(text))
}

func newMetricsServer(addr string, metrics *observe.Metrics, index *phonetic.Index) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health.New(health.Check{
		Name: "dictionary",
		Probe: func(context.Context) error {
			if index.Len() == 0 {
				return errors.New("phonetic dictionary is empty")
			}
			return nil
		},
	}).Register(mux)
	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// loadDictionary loads the configured CMU-format dictionary, falling back to
// the embedded one when no path is configured.
func loadDictionary(ctx context.Context, path string, metrics *observe.Metrics) (*phonetic.Index, error) {
	start := time.Now()
	var (
		index *phonetic.Index
		err   error
	)
	if path == "" {
		index = phonetic.Builtin()
	} else {
		index, err = phonetic.Load(path)
	}
	if err != nil {
		return nil, err
	}
	metrics.DictionaryLoadDuration.Record(ctx, time.Since(start).Seconds())
	return index, nil
}

func importTranscript(path string) ([]lyrics.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return songio.ImportTranscript(f)
}

func importChords(path string) ([]lyrics.Chord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return songio.ImportChords(f)
}

// logUnknownWords reports transcript words missing from the dictionary, each
// with its nearest phonetic suggestions. Debug level: misses are expected and
// handled by the letter-group fallbacks downstream.
func logUnknownWords(ctx context.Context, index *phonetic.Index, tokens []lyrics.Token, metrics *observe.Metrics) {
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		word := phonetic.Normalize(tok.Text)
		if word == "" {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		_, ok := index.Lookup(word)
		metrics.RecordDictionaryLookup(ctx, ok)
		if ok {
			continue
		}
		var near []string
		for _, s := range index.Suggest(word, 3) {
			near = append(near, s.Word)
		}
		slog.Debug("word not in dictionary", "word", word, "suggestions", near)
	}
}

// requestAlternatives runs one alternative-lyrics round trip against the
// configured backend and attaches the result to the store.
func requestAlternatives(ctx context.Context, cfg config.AltLyricsConfig, st *store.Store, metrics *observe.Metrics) error {
	var backendOpts []anyllmlib.Option
	if cfg.APIKey != "" {
		backendOpts = append(backendOpts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		backendOpts = append(backendOpts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}

	llmOpts := []altlyrics.LLMOption{altlyrics.WithTemperature(cfg.Temperature)}
	if cfg.BatchSize > 0 {
		llmOpts = append(llmOpts, altlyrics.WithBatchSize(cfg.BatchSize))
	}

	provider, err := altlyrics.NewLLM(cfg.Provider, cfg.Model, backendOpts, llmOpts...)
	if err != nil {
		return fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}

	svc := altlyrics.NewService(provider, st,
		altlyrics.WithMetrics(metrics),
		altlyrics.WithProviderName(cfg.Provider),
	)
	slog.Info("requesting alternative lyrics", "provider", cfg.Provider, "model", cfg.Model)
	return svc.Run(ctx, altlyrics.Request{Tokens: st.Tokens(), Style: cfg.Style})
}

// awaitQuiescence waits for the debounced recompute to settle and returns the
// last snapshot delivered: at least one snapshot, then a quiet period twice
// the debounce window with none.
func awaitQuiescence(ctx context.Context, snapshots <-chan store.Snapshot, debounce time.Duration) (store.Snapshot, bool) {
	quiet := 2*debounce + 100*time.Millisecond
	deadline := time.After(30*time.Second + debounce)

	var (
		last store.Snapshot
		got  bool
	)
	for {
		select {
		case s := <-snapshots:
			last, got = s, true
		case <-time.After(quiet):
			if got {
				return last, true
			}
		case <-deadline:
			return last, got
		case <-ctx.Done():
			return last, got
		}
	}
}

func writeDocument(path string, snap store.Snapshot) error {
	doc := songio.Document{
		Tokens:        snap.Tokens,
		Lines:         snap.Lines,
		LineSyllables: snap.LineSyllables,
		RhymeGroups:   snap.RhymeGroups,
	}

	if path == "-" {
		return songio.ExportDocument(os.Stdout, doc)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := songio.ExportDocument(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
