package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	corpusFlag string
	debugFlag  bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "intent_responder",
	Short: "Answer free text from a corpus of intents",
	Long: "Scores text against the example phrasings of each intent and answers with one of\n" +
		"the intent's canned replies, or a fixed fallback when nothing matches well enough.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&corpusFlag, "corpus", "", "Corpus file, .json or .toml (default: $INTENT_CORPUS or intents.json)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Print the matched intent, pattern and score")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP responder",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringP("port", "p", "", "Listen port (default: $PORT or 8050)")
	serveCmd.Flags().Bool("watch", true, "Reload the corpus when its file changes")
	serveCmd.Flags().String("db", "", "SQLite database for session history (default: in memory)")
	serveCmd.Flags().Float64("rate-limit", 0, "Requests per second per client, 0 disables")

	askCmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Print one reply",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	askCmd.Flags().Uint64("seed", 0, "Seed reply selection for repeatable output (0 = random)")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively on the terminal",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}
	chatCmd.Flags().String("db", "", "SQLite database to keep the transcript in")
	chatCmd.Flags().Uint64("seed", 0, "Seed reply selection for repeatable output (0 = random)")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the corpus and any skipped entries",
		Args:  cobra.NoArgs,
		RunE:  runInspect,
	}
	inspectCmd.Flags().StringP("format", "f", "text", "Output format: json or text")

	rootCmd.AddCommand(serveCmd, askCmd, chatCmd, inspectCmd)
}

// loadConfig reads the config file and environment, then applies flags that were set
func loadConfig(cmd *cobra.Command) (Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}

	if corpusFlag != "" {
		cfg.CorpusPath = corpusFlag
	}
	if debugFlag {
		cfg.Debug = true
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	if flags.Changed("watch") {
		cfg.Watch, _ = flags.GetBool("watch")
	}
	if flags.Changed("db") {
		cfg.SessionDB, _ = flags.GetString("db")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
	return cfg, nil
}

// matcherOptions builds the selector and trace options shared by the CLI hosts
func matcherOptions(cmd *cobra.Command, cfg Config, trace func(Trace)) []Option {
	var opts []Option
	if flag := cmd.Flags().Lookup("seed"); flag != nil && flag.Changed {
		seed, _ := cmd.Flags().GetUint64("seed")
		opts = append(opts, WithSelector(SeededSelector(seed)))
	}
	if cfg.Debug && trace != nil {
		opts = append(opts, WithTrace(trace))
	}
	return opts
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := matcherOptions(cmd, cfg, func(t Trace) {
		log.Printf("Debug: Matched intent '%s' with pattern '%s' (score: %.2f)", t.Tag, t.Pattern, t.Score)
	})

	cache := NewCorpusCache(cfg.CorpusPath, opts...)
	cache.Load()
	defer cache.Close()

	if cfg.Watch {
		if err := cache.StartWatcher(); err != nil {
			log.Printf("Warning: auto-reload disabled: %v", err)
		} else {
			go cache.WatchFiles(ctx)
		}
	}

	sessions, err := openSessionStore(cfg.SessionDB)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sessions.Close()

	e := newEcho(NewServer(cache, sessions, cfg.Watch), cfg.RateLimit)

	go func() {
		<-ctx.Done()
		e.Close()
	}()

	log.Printf("Intent responder started on port %s", cfg.Port)
	log.Printf("Serving corpus: %s", cfg.CorpusPath)

	if err := e.Start(":" + cfg.Port); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	corpus, err := LoadCorpus(cfg.CorpusPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	renderer := newBubbleRenderer(cmd.ErrOrStderr(), false)
	m := NewMatcher(corpus, matcherOptions(cmd, cfg, renderer.Trace)...)

	fmt.Fprintln(cmd.OutOrStdout(), m.Respond(strings.Join(args, " ")))
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	styled := isTerminal(os.Stdout) && cmd.OutOrStdout() == os.Stdout
	renderer := newBubbleRenderer(cmd.OutOrStdout(), styled)

	corpus, err := LoadCorpus(cfg.CorpusPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	m := NewMatcher(corpus, matcherOptions(cmd, cfg, renderer.Trace)...)

	dbPath, _ := cmd.Flags().GetString("db")
	store, err := openSessionStore(dbPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	return chatLoop(cmd.Context(), bufio.NewScanner(cmd.InOrStdin()), renderer, store, m)
}

// chatLoop answers one line at a time until EOF or "exit"/"quit"
func chatLoop(ctx context.Context, scanner *bufio.Scanner, renderer *bubbleRenderer, store SessionStore, m *Matcher) error {
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := store.Create(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	for {
		if renderer.styled {
			fmt.Fprint(renderer.out, "> ")
		}
		if !scanner.Scan() {
			break
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			break
		}

		reply, _, err := Converse(ctx, store, m, session.ID, text)
		if err != nil {
			return err
		}
		if renderer.styled {
			renderer.User(text)
		}
		renderer.Bot(reply)
	}

	return scanner.Err()
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	corpus, loadErr := LoadCorpus(cfg.CorpusPath)
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	if format == "json" {
		summary := map[string]interface{}{
			"file_path":      corpus.Path,
			"categories":     len(corpus.Categories),
			"outcomes":       corpus.Outcomes,
			"duplicate_tags": corpus.DuplicateTags(),
		}
		if loadErr != nil {
			summary["load_error"] = loadErr.Error()
		}
		b, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Fprintln(out, string(b))
		return nil
	}

	if loadErr != nil {
		fmt.Fprintf(out, "load error: %v\n", loadErr)
	}
	fmt.Fprintf(out, "corpus: %s\n", corpus.Path)
	fmt.Fprintf(out, "categories: %d\n", len(corpus.Categories))
	for _, category := range corpus.Categories {
		fmt.Fprintf(out, "  %-24s %3d patterns %3d responses\n", category.Tag, len(category.Patterns), len(category.Responses))
	}
	for _, o := range corpus.Skipped() {
		fmt.Fprintf(out, "skipped #%d (%q): %s\n", o.Index, o.Tag, o.Reason)
	}
	if dups := corpus.DuplicateTags(); len(dups) > 0 {
		fmt.Fprintf(out, "duplicate tags: %s\n", strings.Join(dups, ", "))
	}
	return nil
}
