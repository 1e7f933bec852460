package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/lingualive/backend/internal/config"
	"github.com/zhouzirui/lingualive/backend/internal/logging"
	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
	"github.com/zhouzirui/lingualive/backend/internal/service/translate"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "direct", "测试模式: direct (直接调用翻译后端) 或 http (调用 /api/translate)")
	text := flag.String("text", "", "待翻译文本")
	target := flag.String("lang", "", "目标语言代码，留空则翻译为全部支持的语言")
	server := flag.String("server", "http://localhost:8080", "http 模式下的服务地址")
	useStub := flag.Bool("stub", false, "direct 模式下强制使用本地词典翻译")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if strings.TrimSpace(*text) == "" {
		flag.Usage()
		log.Fatal("请通过 -text 提供待翻译文本")
	}

	targets := chat.SupportedLanguages()
	if *target != "" {
		lang, err := chat.ParseLanguage(*target)
		if err != nil {
			log.Fatal(err)
		}
		targets = []chat.Language{lang}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "direct":
		runDirect(ctx, cfg, *useStub, *text, targets)
	case "http":
		runHTTP(ctx, *server, *text, targets)
	default:
		flag.Usage()
		log.Fatal("请通过 -mode=direct 或 -mode=http 指定测试模式")
	}
}

func runDirect(ctx context.Context, cfg *config.Config, useStub bool, text string, targets []chat.Language) {
	var translator translate.Translator = translate.NewStubTranslator(nil)
	if !useStub {
		logger, err := logging.New(cfg.Log.Level)
		if err != nil {
			log.Fatalf("日志初始化失败: %v", err)
		}
		llm, err := translate.NewLLMTranslator(ctx, cfg.AI, logger)
		if err != nil {
			log.Fatalf("翻译模型初始化失败 (可使用 -stub): %v", err)
		}
		translator = llm
	}

	for _, lang := range targets {
		start := time.Now()
		out, err := translator.Translate(ctx, text, lang)
		if err != nil {
			log.Printf("翻译失败: lang=%s err=%v", lang, err)
			continue
		}
		log.Printf("翻译成功: lang=%s output=%q latency=%.2fms", lang, out, float64(time.Since(start).Microseconds())/1000)
	}
}

func runHTTP(ctx context.Context, server, text string, targets []chat.Language) {
	endpoint := strings.TrimRight(server, "/") + "/api/translate"

	for _, lang := range targets {
		body, _ := json.Marshal(map[string]string{"text": text, "target": lang.String()})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			log.Fatalf("构造请求失败: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatalf("请求 %s 失败: %v", endpoint, err)
		}

		var payload map[string]string
		decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if decodeErr != nil {
			log.Printf("响应解析失败: lang=%s status=%d err=%v", lang, resp.StatusCode, decodeErr)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			log.Printf("翻译失败: lang=%s status=%d error=%s", lang, resp.StatusCode, payload["error"])
			continue
		}
		fmt.Printf("%s\t%s\t(%.2fms)\n", lang, payload["output"], float64(time.Since(start).Microseconds())/1000)
	}
}
