// Command notifyclient connects to the notifications socket and prints every
// event it receives. Against a server in debug auth mode the init data does
// not need a valid signature.
package main

import (
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"time"

	"edu_rewards/internal/model"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("url", "ws://localhost:8080/api/v1/notifications/ws", "notifications endpoint")
	userID := flag.Int64("user", 0, "telegram user id")
	username := flag.String("username", "dev", "telegram username")
	initData := flag.String("init-data", "", "raw Mini App init data, overrides -user")
	flag.Parse()

	data := *initData
	if data == "" {
		if *userID <= 0 {
			log.Fatal("either -user or -init-data is required")
		}
		data = debugInitData(*userID, *username)
	}

	header := http.Header{}
	header.Add("Authorization", "Telegram "+data)

	conn, _, err := websocket.DefaultDialer.Dial(*addr, header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	events := make(chan []byte)

	go func() {
		defer close(events)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				log.Println("read error:", err)
				return
			}

			events <- p
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for {
		select {
		case p, ok := <-events:
			if !ok {
				return
			}
			var event model.Event
			if err := json.Unmarshal(p, &event); err != nil {
				log.Printf("Received (raw):\n%s\n", p)
				continue
			}
			out, _ := json.MarshalIndent(event.Payload, "", "  ")
			log.Printf("%s at %s:\n%s\n", event.Type, event.At.Format(time.RFC3339), out)

		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func debugInitData(userID int64, username string) string {
	user, _ := json.Marshal(map[string]any{"id": userID, "username": username})

	v := url.Values{}
	v.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	v.Set("user", string(user))
	v.Set("hash", "debug")
	return v.Encode()
}
