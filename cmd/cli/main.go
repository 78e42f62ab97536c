package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"comictracker/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type entryListResponse struct {
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Items  []models.Entry `json:"items"`
}

func main() {
	global := flag.NewFlagSet("comictracker", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 30 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "entries":
		handleEntries(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "import":
		handleImport(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "export":
		handleExport(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "covers":
		handleCovers(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "activity":
		handleActivity(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "watch":
		handleWatch(*baseURL, *tokenPath, args[1:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		username := fs.String("username", "", "username")
		password := fs.String("password", "", "password")
		remember := fs.Bool("remember", false, "long-lived session")
		_ = fs.Parse(args)

		if *username == "" || *password == "" {
			log.Fatal("username and password are required")
		}

		payload := map[string]any{"username": *username, "password": *password, "remember": *remember}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("logged in")
	case "logout":
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("logged out")
	default:
		log.Fatal("usage: comictracker auth <login|logout>")
	}
}

func handleEntries(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "list":
		fs := flag.NewFlagSet("entries list", flag.ExitOnError)
		query := fs.String("q", "", "keyword search in titles and alt titles")
		entryType := fs.String("type", "", "type filter (MANHWA, MANHUA, LIGHT_NOVEL, WESTERN)")
		status := fs.String("status", "", "status filter (CURRENT, COMPLETED)")
		sort := fs.String("sort", "", "sort order (title, updated, score)")
		limit := fs.Int("limit", 50, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/api/entries")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *query != "" {
			qv.Set("q", *query)
		}
		if *entryType != "" {
			qv.Set("type", *entryType)
		}
		if *status != "" {
			qv.Set("status", *status)
		}
		if *sort != "" {
			qv.Set("sort", *sort)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp entryListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("entries show", flag.ExitOnError)
		id := fs.String("id", "", "entry id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("entry id is required")
		}

		var resp models.Entry
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/entries/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "read":
		fs := flag.NewFlagSet("entries read", flag.ExitOnError)
		id := fs.String("id", "", "entry id")
		delta := fs.Int("delta", 1, "chapters read adjustment")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("entry id is required")
		}

		payload := map[string]any{"delta": *delta}
		var resp models.Entry
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/entries/"+url.PathEscape(*id)+"/chapters", token, payload, &resp); err != nil {
			log.Fatalf("read failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		fs := flag.NewFlagSet("entries delete", flag.ExitOnError)
		id := fs.String("id", "", "entry id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("entry id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/api/entries/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: comictracker entries <list|show|read|delete>")
	}
}

func handleImport(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "run":
		fs := flag.NewFlagSet("import run", flag.ExitOnError)
		file := fs.String("file", "", "workbook path (.xlsx)")
		_ = fs.Parse(args)
		if *file == "" {
			log.Fatal("file is required")
		}

		run, err := uploadWorkbook(ctx, client, baseURL+"/api/import", token, *file)
		if err != nil {
			log.Fatalf("import failed: %v", err)
		}
		printJSON(run)
	case "history":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/imports", token, nil, &resp); err != nil {
			log.Fatalf("history failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: comictracker import <run|history>")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "xlsx":
		fs := flag.NewFlagSet("export xlsx", flag.ExitOnError)
		out := fs.String("out", "comictracker-export.xlsx", "output workbook path")
		entryType := fs.String("type", "", "restrict to one type")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/api/export/xlsx")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		if *entryType != "" {
			qv := u.Query()
			qv.Set("type", *entryType)
			u.RawQuery = qv.Encode()
		}

		if err := downloadFile(ctx, client, u.String(), token, *out); err != nil {
			log.Fatalf("export failed: %v", err)
		}
		log.Printf("exported workbook to %s", *out)
	default:
		log.Fatal("usage: comictracker export xlsx")
	}
}

func handleCovers(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "autofill":
		fs := flag.NewFlagSet("covers autofill", flag.ExitOnError)
		limit := fs.Int("limit", 30, "max entries to process")
		_ = fs.Parse(args)

		payload := map[string]any{"limit": *limit}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/covers/autofill", token, payload, &resp); err != nil {
			log.Fatalf("autofill failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: comictracker covers autofill")
	}
}

func handleActivity(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "list", "":
		fs := flag.NewFlagSet("activity list", flag.ExitOnError)
		limit := fs.Int("limit", 50, "page size")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/api/activity")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("activity failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: comictracker activity list")
	}
}

func handleWatch(baseURL, tokenPath string, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on the API host)")
	_ = fs.Parse(args)

	token := mustToken(tokenPath)
	endpoint := *wsURL
	if endpoint == "" {
		var err error
		endpoint, err = websocketURL(baseURL, "/ws")
		if err != nil {
			log.Fatalf("ws url: %v", err)
		}
	}
	if err := runWebSocket(endpoint, token); err != nil {
		log.Fatalf("watch failed: %v", err)
	}
}

func runWebSocket(wsURL, token string) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[watch] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func uploadWorkbook(ctx context.Context, client *http.Client, endpoint, token, path string) (map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var body strings.Builder
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.String()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("import failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func downloadFile(ctx context.Context, client *http.Client, endpoint, token, out string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return fmt.Errorf("download failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	file, err := os.Create(out)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return err
	}
	return nil
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.comictracker-token.json"
	}
	return filepath.Join(home, ".comictracker", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("comictracker <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|logout")
	fmt.Println("  entries list|show|read|delete")
	fmt.Println("  import run|history")
	fmt.Println("  export xlsx")
	fmt.Println("  covers autofill")
	fmt.Println("  activity list")
	fmt.Println("  watch")
}
