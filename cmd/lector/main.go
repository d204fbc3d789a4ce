package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"lectorgastos/internal"
	"lectorgastos/internal/ai"
	"lectorgastos/internal/api"
	"lectorgastos/internal/categorize"
	"lectorgastos/internal/config"
	"lectorgastos/internal/connectors"
	"lectorgastos/internal/listener"
	"lectorgastos/internal/logger"
	"lectorgastos/internal/ocr"
	"lectorgastos/internal/pipeline"
	"lectorgastos/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "serve":
		processor := newProcessor(ctx, db, cfg, log)
		must(api.NewServer(db, processor, cfg, log).ListenAndServe(ctx))
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "document path")
		session := fs.String("session", "cli", "session id")
		out := fs.String("out", "", "optional xlsx path for the saved records")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		content, err := os.ReadFile(*input)
		must(err)
		filename := filepath.Base(*input)
		processor := newProcessor(ctx, db, cfg, log)
		saved, err := processor.SaveUpload(ctx, *session, internal.RawDocument{
			Content:  content,
			MimeType: pipeline.ResolveMimeType("", filename),
			FileName: filename,
		})
		must(err)
		for _, e := range saved {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n", e.Fecha.Format("02/01/2006"), e.Monto.StringFixed(2), e.Tipo, e.Categoria, e.Concepto)
		}
		if strings.TrimSpace(*out) != "" {
			must(pipeline.ExportExpensesToFile(saved, *out))
		}
		fmt.Printf("run done session=%s records=%d\n", *session, len(saved))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		session := fs.String("session", "", "session id")
		ids := fs.String("ids", "", "comma separated record ids")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*session) == "" || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--session and --out are required"))
		}
		expenses, err := db.ListExpensesByIDs(ctx, *session, splitIDs(*ids))
		must(err)
		if len(expenses) == 0 {
			must(fmt.Errorf("no records for session=%s", *session))
		}
		must(pipeline.ExportExpensesToFile(expenses, *out))
		fmt.Printf("exported %d records to %s\n", len(expenses), *out)
	case "categories":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		session := fs.String("session", "", "session id")
		_ = fs.Parse(os.Args[2:])
		categories := append([]string{}, categorize.Categories...)
		if strings.TrimSpace(*session) != "" {
			custom, err := db.CustomCategories(ctx, *session)
			must(err)
			categories = append(categories, custom...)
		}
		fmt.Println(strings.Join(categories, "\n"))
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.NewConnector(ctx, cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		session := fs.String("session", cfg.MailListenerSessionID, "session id for the records")
		_ = fs.Parse(os.Args[2:])
		processor := newProcessor(ctx, db, cfg, log)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(ctx, *session, *provider, *messageID)
			must(err)
			fmt.Printf("processed email id=%d documents=%d records=%d\n", res.EmailID, res.Documents, res.Saved)
			return
		}
		emails, records, err := processor.ProcessPending(ctx, *session, *batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d records=%d\n", emails, records)
	case "mail:listen":
		processor := newProcessor(ctx, db, cfg, log)
		must(listener.NewService(db, cfg, processor, log).Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func newProcessor(ctx context.Context, db *storage.DB, cfg config.Config, log zerolog.Logger) *pipeline.Processor {
	return pipeline.NewProcessor(db, ai.NewAdapterFromConfig(ctx, cfg, log), ocr.NewRecognizer(cfg, log), log)
}

func splitIDs(value string) []string {
	var out []string
	for _, id := range strings.Split(value, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func usage() {
	fmt.Println("usage: lector <command>")
	fmt.Println("commands:")
	fmt.Println("  serve")
	fmt.Println("  run --input=./estado.pdf [--session=cli] [--out=./out/gastos.xlsx]")
	fmt.Println("  export:xlsx --session=abc [--ids=a,b] --out=./out/gastos.xlsx")
	fmt.Println("  categories [--session=abc]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20] [--session=correo]")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
