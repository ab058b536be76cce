// Command client is a line-oriented test client for the game server.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"

	"github.com/wfunc/traitorserver/network"
)

type identity struct {
	mutex    sync.Mutex
	roomID   string
	playerID string
}

func (id *identity) set(roomID, playerID string) {
	id.mutex.Lock()
	defer id.mutex.Unlock()
	id.roomID, id.playerID = roomID, playerID
}

func (id *identity) get() (string, string) {
	id.mutex.Lock()
	defer id.mutex.Unlock()
	return id.roomID, id.playerID
}

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	packet, err := network.Encode(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	app := &cli.App{
		Name:  "client",
		Usage: "play a room from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "server websocket endpoint"},
			&cli.StringFlag{Name: "account", Required: true, Usage: "account id"},
			&cli.StringFlag{Name: "name", Required: true, Usage: "display name"},
		},
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "open a new room and become its host",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "min-players", Usage: "override the server's minimum player count"},
				},
				Action: func(c *cli.Context) error {
					return run(c, network.MsgTypeCreateRoom, network.CreateRoomRequest{
						AccountID:   c.String("account"),
						DisplayName: c.String("name"),
						MinPlayers:  c.Int("min-players"),
					})
				},
			},
			{
				Name:      "join",
				Usage:     "join an existing room",
				ArgsUsage: "ROOM_ID",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("join needs exactly one ROOM_ID", 2)
					}
					return run(c, network.MsgTypeJoinRoom, network.JoinRoomRequest{
						RoomID:      c.Args().First(),
						AccountID:   c.String("account"),
						DisplayName: c.String("name"),
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context, msgID uint16, first interface{}) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	url := c.String("url")
	log.Printf("Connecting to %s", url)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	var id identity
	done := make(chan struct{})
	go readLoop(conn, &id, done)

	if err := send(conn, msgID, first); err != nil {
		return err
	}
	log.Println("Commands: start | vote ID | nominate ID | verdict HANG|SPARE | say TEXT | defend TEXT | leave")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return nil
		case <-heartbeat.C:
			if err := send(conn, network.MsgTypeHeartbeat, nil); err != nil {
				return err
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := command(conn, &id, strings.TrimSpace(line)); err != nil {
				log.Println(err)
			}
		}
	}
}

func command(conn *websocket.Conn, id *identity, line string) error {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	roomID, playerID := id.get()

	switch verb {
	case "":
		return nil
	case "start":
		return send(conn, network.MsgTypeStartRoom, network.PlayerRequest{RoomID: roomID, PlayerID: playerID})
	case "leave":
		return send(conn, network.MsgTypeLeaveRoom, network.PlayerRequest{RoomID: roomID, PlayerID: playerID})
	case "vote":
		return send(conn, network.MsgTypeNightVote, network.TargetRequest{RoomID: roomID, PlayerID: playerID, TargetID: arg})
	case "nominate":
		return send(conn, network.MsgTypeNominate, network.TargetRequest{RoomID: roomID, PlayerID: playerID, TargetID: arg})
	case "verdict":
		return send(conn, network.MsgTypeVerdictVote, network.VerdictRequest{RoomID: roomID, PlayerID: playerID, Choice: strings.ToUpper(arg)})
	case "say":
		return send(conn, network.MsgTypeChat, network.ChatRequest{RoomID: roomID, PlayerID: playerID, Text: arg})
	case "defend":
		return send(conn, network.MsgTypeAccusedChat, network.ChatRequest{RoomID: roomID, PlayerID: playerID, Text: arg})
	}
	return fmt.Errorf("unknown command %q", verb)
}

func readLoop(conn *websocket.Conn, id *identity, done chan<- struct{}) {
	defer close(done)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Println("Read error:", err)
			return
		}
		packet, err := network.Decode(message)
		if err != nil {
			log.Printf("Received invalid packet of size %d", len(message))
			continue
		}

		switch packet.MsgID {
		case network.MsgTypeHeartbeat:
			continue
		case network.MsgTypeRoomCreated:
			var ev network.RoomCreatedEvent
			if json.Unmarshal(packet.Data, &ev) == nil {
				id.set(ev.View.RoomID, ev.PlayerID)
				log.Printf("Created room %s as player %s", ev.View.RoomID, ev.PlayerID)
			}
		case network.MsgTypePlayerJoined:
			var ev network.PlayerJoinedEvent
			if json.Unmarshal(packet.Data, &ev) == nil {
				id.set(ev.View.RoomID, ev.PlayerID)
				log.Printf("Joined room %s as player %s", ev.View.RoomID, ev.PlayerID)
			}
		}
		log.Printf("<- RECV %s: %s", network.MsgName(packet.MsgID), string(packet.Data))
	}
}
