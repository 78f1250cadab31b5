package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/UKHgit/meet-point/internal/domain"
)

var (
	addr = flag.String("addr", "localhost:8080", "http service address")
	room = flag.String("room", "", "room to join on connect")
)

// serverEvent is the flattened union of every server frame, enough for
// terminal rendering.
type serverEvent struct {
	Type        domain.EventType `json:"type"`
	Room        string           `json:"room,omitempty"`
	Members     []string         `json:"members,omitempty"`
	History     []domain.Message `json:"history,omitempty"`
	Author      string           `json:"author,omitempty"`
	Text        string           `json:"text,omitempty"`
	Timestamp   time.Time        `json:"timestamp,omitempty"`
	ReplyTo     *domain.ReplyRef `json:"replyTo,omitempty"`
	DisplayName string           `json:"displayName,omitempty"`
	OldName     string           `json:"oldName,omitempty"`
	Code        string           `json:"code,omitempty"`
	Message     string           `json:"message,omitempty"`
	Rooms       []string         `json:"rooms,omitempty"`
	Count       int              `json:"count,omitempty"`
}

func main() {
	flag.Parse()

	username := getUsername()
	conn := connectWebSocket(username)
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go readEvents(conn, done)

	if *room != "" {
		sendCommand(conn, domain.JoinCommand{Room: *room, DisplayName: username})
	}

	fmt.Println("Commands: /join <room>, /name <displayName>, /typing. Anything else is sent as a message.")
	writeLoop(conn, interrupt, done)
}

func getUsername() string {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("Enter your display name: ")
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

func connectWebSocket(username string) *websocket.Conn {
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	if username != "" {
		u.RawQuery = "displayName=" + url.QueryEscape(username)
	}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to server: %v", err)
	}
	log.Println("Connected.")
	return conn
}

func readEvents(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Connection closed: %v", err)
			return
		}

		var ev serverEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("Error parsing event: %v", err)
			continue
		}
		render(ev)
	}
}

func render(ev serverEvent) {
	switch ev.Type {
	case domain.EventJoined:
		fmt.Printf("\n* joined %q (members: %s)\n", ev.Room, strings.Join(ev.Members, ", "))
		for _, msg := range ev.History {
			printMessage(msg.Timestamp, msg.Author, msg.Text, msg.ReplyTo)
		}
	case domain.EventMessage:
		printMessage(ev.Timestamp, ev.Author, ev.Text, ev.ReplyTo)
	case domain.EventMemberJoined:
		fmt.Printf("* %s joined the room\n", ev.DisplayName)
	case domain.EventMemberLeft:
		fmt.Printf("* %s left the room\n", ev.DisplayName)
	case domain.EventMemberUpdated:
		fmt.Printf("* %s is now known as %s\n", ev.OldName, ev.DisplayName)
	case domain.EventTyping:
		fmt.Printf("* %s is typing...\n", ev.DisplayName)
	case domain.EventRooms:
		fmt.Printf("* rooms: %s\n", strings.Join(ev.Rooms, ", "))
	case domain.EventSystem:
		fmt.Printf("* %s\n", ev.Text)
	case domain.EventUserCount:
		fmt.Printf("* %d user(s) in the room\n", ev.Count)
	case domain.EventError:
		fmt.Printf("! error (%s): %s\n", ev.Code, ev.Message)
	default:
		fmt.Printf("? unknown event %q\n", ev.Type)
	}
}

func printMessage(ts time.Time, author, text string, replyTo *domain.ReplyRef) {
	if replyTo != nil {
		fmt.Printf("[%s] %s (re %s: %q): %s\n",
			ts.Local().Format("15:04:05"), author, replyTo.Author, replyTo.Snippet, text)
		return
	}
	fmt.Printf("[%s] %s: %s\n", ts.Local().Format("15:04:05"), author, text)
}

func sendCommand(conn *websocket.Conn, cmd domain.Command) {
	data, err := domain.EncodeCommand(cmd)
	if err != nil {
		log.Printf("Error encoding command: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("Error sending command: %v", err)
	}
}

func writeLoop(conn *websocket.Conn, interrupt chan os.Signal, done chan struct{}) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection...")
			err := conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error during close: %v", err)
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			sendCommand(conn, parseLine(line))
		}
	}
}

func parseLine(line string) domain.Command {
	switch {
	case strings.HasPrefix(line, "/join "):
		return domain.JoinCommand{Room: strings.TrimSpace(strings.TrimPrefix(line, "/join "))}
	case strings.HasPrefix(line, "/name "):
		return domain.RenameCommand{DisplayName: strings.TrimSpace(strings.TrimPrefix(line, "/name "))}
	case line == "/typing":
		return domain.TypingCommand{}
	default:
		return domain.MessageCommand{Text: line}
	}
}
