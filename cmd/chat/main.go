package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/client/session"
	"github.com/zhouzirui/lingualive/backend/internal/client/transport"
	"github.com/zhouzirui/lingualive/backend/internal/config"
	"github.com/zhouzirui/lingualive/backend/internal/logging"
	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	roleFlag := flag.String("role", "A", "participant role: A or B")
	langFlag := flag.String("lang", "", "display language (en, hi, fr, bn, mr); defaults to en for A and hi for B")
	server := flag.String("server", cfg.Client.ServerURL, "relay base URL")
	noTranslate := flag.Bool("no-translate", !cfg.Client.TranslationEnabled, "send messages without requesting translation")
	logLevel := flag.String("log-level", "warn", "log level for connection diagnostics")
	flag.Parse()

	role, err := chat.ParseRole(*roleFlag)
	if err != nil {
		log.Fatal(err)
	}

	pref := chat.DefaultPreference(role)
	pref.TranslationEnabled = !*noTranslate
	if *langFlag != "" {
		if pref.Language, err = chat.ParseLanguage(*langFlag); err != nil {
			log.Fatal(err)
		}
	}

	logger, err := logging.New(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg.Client, *server, role, pref, logger, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, clientCfg config.ClientConfig, server string, role chat.Role, pref chat.LanguagePreference, logger *zap.SugaredLogger, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := transport.DefaultOptions()
	opts.HandshakeTimeout = clientCfg.HandshakeTimeout
	dialer := transport.NewDialer(server, opts, logger.Named("transport"))

	sessCfg := session.DefaultConfig()
	sessCfg.NegotiationTimeout = clientCfg.NegotiationTimeout
	sessCfg.NegotiationRetries = clientCfg.NegotiationRetries

	screen := newPrinter(out)
	var sess *session.Session
	sess = session.New(session.DialerOpener(dialer), role, pref, sessCfg, logger.Named("session"), session.Hooks{
		OnMessage: func(m chat.Message) {
			screen.println(formatMessage(m, sess.Role()))
		},
		OnStateChange: func(state session.State, err error) {
			if err != nil {
				screen.printf("-- %s: %v\n", state, err)
				return
			}
			screen.printf("-- %s\n", state)
		},
	})

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()

	screen.printf("LinguaLive: you are participant %s reading %s. Type /help for commands.\n", role, pref.Language.Name())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return waitRun(runErr)
		case err := <-runErr:
			return err
		case line, ok := <-lines:
			if !ok {
				cancel()
				return waitRun(runErr)
			}
			if quit := handleLine(sess, screen, line); quit {
				cancel()
				return waitRun(runErr)
			}
		}
	}
}

func waitRun(runErr <-chan error) error {
	err := <-runErr
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleLine 执行一行输入，返回是否退出。
func handleLine(sess *session.Session, p *printer, line string) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		p.println(err.Error())
		return false
	}

	switch cmd.kind {
	case cmdSay:
		if cmd.text == "" {
			return false
		}
		err := sess.SendChat(cmd.text, sess.Preference().TranslationEnabled)
		if errors.Is(err, session.ErrNotReady) {
			p.printf("not connected (%s), message dropped\n", sess.State())
		} else if err != nil {
			p.println(err.Error())
		}
	case cmdLang:
		if err := sess.SetLanguage(cmd.lang); err != nil {
			p.println(err.Error())
		}
	case cmdTranslate:
		sess.SetTranslation(cmd.on)
		p.printf("translation %s\n", map[bool]string{true: "on", false: "off"}[cmd.on])
	case cmdRole:
		if err := sess.SetRole(cmd.role); err != nil {
			p.println(err.Error())
		}
	case cmdLog:
		viewer := sess.Role()
		for _, m := range sess.Snapshot() {
			p.println(formatMessage(m, viewer))
		}
	case cmdStatus:
		pref := sess.Preference()
		p.printf("session %s: role %s, language %s, translation %t, %s\n", sess.ID(), sess.Role(), pref.Language.Name(), pref.TranslationEnabled, sess.State())
	case cmdReconnect:
		if err := sess.Reconnect(); err != nil {
			p.println(err.Error())
		}
	case cmdHelp:
		p.println(helpText)
	case cmdQuit:
		return true
	}
	return false
}

// printer 串行化会话协程与输入协程的输出。
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) println(s string) {
	p.printf("%s\n", s)
}
