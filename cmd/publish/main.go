// publish builds, signs and submits one event to a relay, then waits
// for the OK reply.
//
// Examples:
//
//	publish --relay ws://localhost:7447/ws --seckey $SECKEY \
//	    --type card --card-id BTC001 --name Satoshi --rarity legendary
//	publish --relay ws://localhost:7447/ws --seckey $SECKEY \
//	    --kind 32123 --content '{}' --tag card,BTC001 --tag type,buy \
//	    --tag price,1000 --tag quantity,1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cardbazaar/ledger/internal/event"
	"github.com/cardbazaar/ledger/internal/keys"
)

type tagFlags [][]string

func (t *tagFlags) String() string { return fmt.Sprint([][]string(*t)) }

func (t *tagFlags) Set(value string) error {
	parts := strings.Split(value, ",")
	if len(parts) < 2 {
		return fmt.Errorf("tag needs at least name,value: %q", value)
	}
	*t = append(*t, parts)
	return nil
}

func main() {
	relayURL := flag.String("relay", "ws://localhost:7447/ws", "relay websocket URL")
	secret := flag.String("seckey", os.Getenv("LEDGER_SECKEY"), "hex or nsec secret key")
	typ := flag.String("type", "", "convenience builder: card, offer, cancel")
	kind := flag.Int("kind", 0, "raw event kind (with --content/--tag)")
	content := flag.String("content", "", "raw event content")
	var tags tagFlags
	flag.Var(&tags, "tag", "raw tag as name,value[,more] (repeatable)")

	cardID := flag.String("card-id", "", "card id (type=card)")
	name := flag.String("name", "", "card name (type=card)")
	rarity := flag.String("rarity", "", "card rarity (type=card)")
	card := flag.String("card", "", "card id (type=offer)")
	offerType := flag.String("offer-type", "sell", "buy, sell or exchange (type=offer)")
	price := flag.Int64("price", 0, "offer price (type=offer)")
	quantity := flag.Int("quantity", 1, "offer quantity (type=offer)")
	offerID := flag.String("offer-id", "", "offer event id (type=cancel)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *secret == "" {
		logger.Error("no secret key: pass --seckey or set LEDGER_SECKEY")
		os.Exit(1)
	}
	key, err := keys.ParseSecret(*secret)
	if err != nil {
		logger.Error("bad secret key", "error", err)
		os.Exit(1)
	}
	pubkey := key.PublicHex()

	ev, err := buildEvent(pubkey, *typ, *kind, *content, tags,
		*cardID, *name, *rarity, *card, *offerType, *price, *quantity, *offerID)
	if err != nil {
		logger.Error("build event", "error", err)
		os.Exit(1)
	}

	if err := ev.Sign(key.SecretHex()); err != nil {
		logger.Error("sign event", "error", err)
		os.Exit(1)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*relayURL, nil)
	if err != nil {
		logger.Error("dial relay", "url", *relayURL, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	frame, err := json.Marshal([]any{"EVENT", ev})
	if err != nil {
		logger.Error("marshal frame", "error", err)
		os.Exit(1)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		logger.Error("send event", "error", err)
		os.Exit(1)
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, reply, err := conn.ReadMessage()
	if err != nil {
		logger.Error("read reply", "error", err)
		os.Exit(1)
	}

	fmt.Printf("event %s\nreply %s\n", ev.ID, reply)
}

func buildEvent(pubkey, typ string, kind int, content string, tags tagFlags,
	cardID, name, rarity, card, offerType string, price int64, quantity int, offerID string,
) (*event.Event, error) {
	switch typ {
	case "card":
		if cardID == "" || name == "" || rarity == "" {
			return nil, fmt.Errorf("type=card needs --card-id, --name and --rarity")
		}
		return event.NewCardDefinition(pubkey, event.CardDefinition{
			ID:     cardID,
			Name:   name,
			Rarity: rarity,
		})
	case "offer":
		if card == "" {
			return nil, fmt.Errorf("type=offer needs --card")
		}
		return event.NewTradeOffer(pubkey, event.TradeOffer{
			Card:     card,
			Type:     offerType,
			Price:    price,
			Quantity: quantity,
		})
	case "cancel":
		if offerID == "" {
			return nil, fmt.Errorf("type=cancel needs --offer-id")
		}
		return event.NewTradeCancel(pubkey, offerID), nil
	case "":
		if kind == 0 {
			return nil, fmt.Errorf("pass --type or --kind")
		}
		return event.New(pubkey, kind, content, tags), nil
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}
}
