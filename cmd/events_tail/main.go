package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"medintake-be/pkg/events"
	pktNats "medintake-be/pkg/nats"
)

// Tails the intake event stream. Handy for watching SESSION_STARTED,
// INTERVIEW_COMPLETED and SESSION_ARCHIVED flow through NATS while testing.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	sub, err := pktNats.NewSubscriber(natsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	err = sub.Subscribe("intake.>", "events_tail", func(ctx context.Context, event events.Event) error {
		pretty, _ := json.MarshalIndent(event.Payload(), "", "  ")
		color.Cyan("[%s] %s", event.Timestamp().Format("15:04:05"), event.EventType())
		fmt.Println(string(pretty))
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	color.Green("Tailing intake.> events. Ctrl+C to stop.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
