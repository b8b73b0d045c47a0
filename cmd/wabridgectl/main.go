package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/wabridge/wabridge/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	addrFlag := flag.String("addr", "", "daemon address (overrides the session addr file)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	addr, err := resolveAddr(sessionName, *addrFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	c := &ctl{
		base:    "http://" + addr,
		client:  &http.Client{Timeout: 10 * time.Second},
		jsonOut: *jsonFlag,
	}

	switch args[0] {
	case "status":
		cmdStatus(c)
	case "qr":
		cmdQR(c)
	case "chats":
		cmdChats(c)
	case "unread":
		cmdUnread(c)
	case "send":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: wabridgectl send <chatId> <message...>")
			os.Exit(1)
		}
		cmdSend(c, args[1], strings.Join(args[2:], " "))
	case "mark-all-read":
		cmdMarkAllRead(c)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: wabridgectl [--session <name>] [--addr <host:port>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                    Show session status")
	fmt.Fprintln(os.Stderr, "  qr                        Show the pairing QR code")
	fmt.Fprintln(os.Stderr, "  chats                     List chats")
	fmt.Fprintln(os.Stderr, "  unread                    List chats with unread messages")
	fmt.Fprintln(os.Stderr, "  send <chatId> <message>   Send a text message")
	fmt.Fprintln(os.Stderr, "  mark-all-read             Mark every unread chat as read")
}

// resolveAddr prefers the explicit flag, then the addr file the daemon wrote
// on startup.
func resolveAddr(sessionName, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	addrFile := session.AddrFilePath(sessionName)
	data, err := os.ReadFile(addrFile)
	if err != nil {
		return "", fmt.Errorf("daemon not running for session %q (no addr file at %s)", sessionName, addrFile)
	}
	addr := strings.TrimSpace(string(data))
	if addr == "" {
		return "", fmt.Errorf("addr file %s is empty", addrFile)
	}
	return addr, nil
}

type ctl struct {
	base    string
	client  *http.Client
	jsonOut bool
}

// request performs a call against the daemon and decodes the JSON envelope.
// An envelope with success=false becomes an error carrying its message.
func (c *ctl) request(method, path string, payload any) (map[string]any, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out["success"] != true {
		msg, _ := out["message"].(string)
		if msg == "" {
			msg, _ = out["error"].(string)
		}
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return out, fmt.Errorf("%s", msg)
	}
	return out, nil
}

func (c *ctl) get(path string) map[string]any {
	out, err := c.request(http.MethodGet, path, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return out
}

func (c *ctl) post(path string, payload any) map[string]any {
	out, err := c.request(http.MethodPost, path, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return out
}

func cmdStatus(c *ctl) {
	resp := c.get("/health")
	if c.jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Session: %v\n", resp["session"])
	fmt.Printf("State:   %v\n", resp["state"])
	fmt.Printf("Ready:   %v\n", resp["ready"])
	fmt.Printf("Uptime:  %.0fms\n", resp["uptimeMs"])
	if acct, ok := resp["account"].(map[string]any); ok {
		fmt.Printf("Account: %v (%v)\n", acct["name"], acct["number"])
	}
}

func cmdQR(c *ctl) {
	resp := c.get("/qr")
	if c.jsonOut {
		outputJSON(resp)
		return
	}
	code, ok := resp["qr"].(string)
	if !ok || code == "" {
		if msg, ok := resp["message"].(string); ok {
			fmt.Println(msg)
		} else {
			fmt.Println("No pairing code available.")
		}
		return
	}
	fmt.Println(renderQR(code))
	fmt.Println("Scan the code with your phone: Settings > Linked Devices > Link a Device.")
}

func cmdChats(c *ctl) {
	resp := c.get("/api/chats")
	if c.jsonOut {
		outputJSON(resp)
		return
	}
	chats, _ := resp["chats"].([]any)
	if len(chats) == 0 {
		fmt.Println("No chats found.")
		return
	}
	for _, raw := range chats {
		chat, _ := raw.(map[string]any)
		unread, _ := chat["unreadCount"].(float64)
		badge := "   "
		if unread > 0 {
			badge = fmt.Sprintf("%3.0f", unread)
		}
		fmt.Printf("%s  %-30v %v\n", badge, chat["name"], chat["id"])
	}
}

func cmdUnread(c *ctl) {
	resp := c.get("/api/unread-chats")
	if c.jsonOut {
		outputJSON(resp)
		return
	}
	chats, _ := resp["chats"].([]any)
	if len(chats) == 0 {
		fmt.Println("No unread chats.")
		return
	}
	for _, raw := range chats {
		chat, _ := raw.(map[string]any)
		fmt.Printf("%3.0f  %-30v %v\n", chat["unreadCount"], chat["name"], chat["id"])
	}
	fmt.Printf("\nTotal unread messages: %.0f\n", resp["totalUnread"])
}

func cmdSend(c *ctl, chatID, message string) {
	resp := c.post("/api/send-message", map[string]string{
		"chatId":  chatID,
		"message": message,
	})
	if c.jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Sent. Message ID: %v\n", resp["messageId"])
}

func cmdMarkAllRead(c *ctl) {
	resp := c.post("/api/mark-all-read", nil)
	if c.jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Marked %.0f chats read (%.0f failed).\n", resp["marked"], resp["failed"])
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

// renderQR converts a string to a compact ASCII QR code using Unicode
// half-block characters. Two bitmap rows become one terminal line.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}
	qr.DisableBorder = false

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top && !bot:
				sb.WriteRune('▀')
			case !top && bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}

	return sb.String()
}
