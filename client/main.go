// Interactive terminal client for manual testing against a running server.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mahaj/topic-chat/pkg/model"
)

type loginResponse struct {
	Token string   `json:"token"`
	Rooms []string `json:"rooms"`
}

func login(apiAddr, username, password string) (loginResponse, error) {
	reqBody, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(apiAddr+"/api/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return loginResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return loginResponse{}, fmt.Errorf("login failed: %s", string(body))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return loginResponse{}, err
	}
	return lr, nil
}

func send(c *websocket.Conn, event model.EventType, data any) error {
	frame, err := json.Marshal(model.Event{Event: event, Data: data})
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, frame)
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "server address")
	username := flag.String("user", "user1", "username")
	password := flag.String("pass", "", "password")
	room := flag.String("room", "sports", "room to join")
	flag.Parse()

	lr, err := login("http://"+*serverAddr, *username, *password)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("logged in, rooms: %v", lr.Rooms)

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	q := u.Query()
	q.Set("token", lr.Token)
	u.RawQuery = q.Encode()

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	if err := send(c, model.EventRegister, *username); err != nil {
		log.Fatal("register:", err)
	}
	if err := send(c, model.EventJoinRoom, *room); err != nil {
		log.Fatal("join:", err)
	}

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}

			var env model.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				log.Printf("received raw: %s", data)
				continue
			}

			switch env.Event {
			case model.EventGroupMessage:
				var m model.GroupMessage
				json.Unmarshal(env.Data, &m)
				fmt.Printf("\r[%s] %s: %s\n> ", m.Room, m.FromUser, m.Message)
			case model.EventPrivateMessage:
				var m model.PrivateMessage
				json.Unmarshal(env.Data, &m)
				fmt.Printf("\r[dm] %s -> %s: %s\n> ", m.FromUser, m.ToUser, m.Message)
			case model.EventTyping:
				var p model.TypingPayload
				json.Unmarshal(env.Data, &p)
				if p.IsTyping {
					fmt.Printf("\r%s is typing...\n> ", p.Username)
				}
			default:
				fmt.Printf("\r%s: %s\n> ", env.Event, env.Data)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Commands: plain text sends to the joined room, "/dm user text" sends a
	// private message, "/quit" exits.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				fmt.Print("> ")
				continue
			}

			if text == "/quit" {
				close(interrupt)
				break
			}

			var err error
			if rest, ok := strings.CutPrefix(text, "/dm "); ok {
				to, body, found := strings.Cut(rest, " ")
				if !found {
					fmt.Print("usage: /dm <user> <text>\n> ")
					continue
				}
				err = send(c, model.EventPrivateMessage, model.PrivateMessagePayload{
					FromUser: *username, ToUser: to, Message: body,
				})
			} else {
				err = send(c, model.EventGroupMessage, model.GroupMessagePayload{
					Room: *room, FromUser: *username, Message: text,
				})
			}
			if err != nil {
				log.Println("write:", err)
				break
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
