package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/KayTeo/mimir-extension/pkg/events"
	"github.com/KayTeo/mimir-extension/pkg/nats"

	"github.com/joho/godotenv"
)

// eventtail tails the capture event stream. Useful for checking what the
// coordinator is actually emitting without attaching a browser surface.
func main() {
	subject := flag.String("subject", "capture.>", "subject filter to tail")
	durable := flag.String("durable", "eventtail", "durable consumer name")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://localhost:4222"
	}

	sub, err := nats.NewSubscriber(url)
	if err != nil {
		log.Fatalf("Error: Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	err = sub.Subscribe(*subject, *durable, func(ctx context.Context, event events.Event) error {
		data, _ := json.Marshal(event.Payload())
		log.Printf("%s %s", event.EventType(), string(data))
		return nil
	})
	if err != nil {
		log.Fatalf("Error: Failed to subscribe: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
}
