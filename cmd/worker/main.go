package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/headlineagentur/webportal/internal/config"
	"github.com/headlineagentur/webportal/internal/email"
	"github.com/headlineagentur/webportal/internal/leads"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	smtp := email.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// same topology as the publisher
	mainQ := cfg.RabbitQueue
	dlqQ := mainQ + ".dlq"
	if _, err := ch.QueueDeclare(dlqQ, true, false, false, false, nil); err != nil {
		log.Fatalf("dlq declare: %v", err)
	}
	if _, err := ch.QueueDeclare(mainQ, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqQ,
	}); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(mainQ, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d mail_to=%s", mainQ, concurrency, cfg.MailTo)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var n leads.Notification
				if err := json.Unmarshal(d.Body, &n); err != nil || n.LeadID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := sendLeadMail(smtp, cfg.MailTo, n); err != nil {
					if errors.Is(err, email.ErrNotConfigured) {
						// nothing to deliver to; drop instead of poisoning the queue
						log.Printf("worker=%d lead=%s skipped, smtp not configured", workerID, n.LeadID)
						_ = d.Ack(false)
						continue
					}
					log.Printf("worker=%d lead=%s mail failed cost=%s err=%v", workerID, n.LeadID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed lead=%s err=%v", workerID, n.LeadID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func sendLeadMail(smtp email.SMTPConfig, to string, n leads.Notification) error {
	subject := "[Kontakt] Neue Anfrage"
	switch {
	case n.Type == leads.TypeApplication:
		subject = "[Bewerbung] Neue Bewerbung"
	case n.Type == leads.TypeNewsletter:
		subject = "[Newsletter] Neue Anmeldung"
	case n.Subject != "":
		subject = fmt.Sprintf("[Kontakt] %s", n.Subject)
	}

	lines := []string{
		"Neue Anfrage eingegangen.",
		"",
		"Name: " + orDash(n.Name),
		"E-Mail: " + orDash(n.Email),
		"Telefon: " + orDash(n.Phone),
		"Quelle: " + orDash(n.SourcePage),
		"",
		"Nachricht:",
		orDash(n.Message),
	}

	return email.SendText(smtp, to, subject, strings.Join(lines, "\n"))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
