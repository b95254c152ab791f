package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"salescompagent/models"
)

// Manual smoke client: drives a running server through a scripted
// conversation and prints each exchange.
func main() {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	flag.Parse()

	script := []string{
		"Hi, what is the minimum commission guarantee?",
		"Actually, I want to run a SPIF contest for my team.",
		"I'm Ana Torres, ana.torres@example.com. Can we meet tomorrow between 9am and noon Eastern?",
		"The first slot works for me.",
		"That's all, thanks!",
	}

	client := &http.Client{Timeout: 60 * time.Second}
	sessionID := ""

	for _, text := range script {
		resp, err := send(client, *base, sessionID, text)
		if err != nil {
			log.Fatalf("chat request failed: %v", err)
		}
		sessionID = resp.SessionID

		fmt.Printf(">>> %s\n", text)
		fmt.Printf("<<< %s\n\n", resp.Reply)
		if resp.Terminal {
			fmt.Printf("session %s ended\n", sessionID)
			break
		}
	}
}

func send(client *http.Client, base, sessionID, text string) (*models.ChatResponse, error) {
	body, err := json.Marshal(models.ChatRequest{SessionID: sessionID, Text: text})
	if err != nil {
		return nil, err
	}

	httpResp, err := client.Post(base+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", httpResp.Status)
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
