// seed inserts development sample data for local testing: a few text catalog items, and the required channel
// set when CHANNEL_MODE=dynamic. Idempotent: skips the catalog if it already has items.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"referral-gate-bot/internal/channel"
	"referral-gate-bot/internal/config"
	contentdomain "referral-gate-bot/internal/content/domain"
	contentrepo "referral-gate-bot/internal/content/repository"
	contentservice "referral-gate-bot/internal/content/service"
	"referral-gate-bot/internal/db"
	settingsrepo "referral-gate-bot/internal/platformsettings/repository"
)

var devItems = []struct {
	title string
	body  string
}{
	{"Getting started", "Welcome to the library. Invite friends with your referral link to earn points."},
	{"Weekly digest", "This week's highlights, collected by the admin."},
	{"Cheat sheet", "Keyboard shortcuts and tips, one page."},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	logger := zap.NewNop()
	catalog := contentservice.NewCatalog(contentrepo.NewPostgresRepository(conn), logger)

	n, err := catalog.Count(ctx)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if n > 0 {
		log.Printf("Catalog already has %d items. Skipping content.", n)
	} else {
		for _, it := range devItems {
			item, err := catalog.Create(ctx, it.title, contentdomain.TextPayload(it.body), cfg.AdminID)
			if err != nil {
				log.Fatalf("create %q: %v", it.title, err)
			}
			log.Printf("created item %s (%s)", item.ID, item.Title)
		}
	}

	if cfg.ChannelMode == config.ChannelModeDynamic {
		dyn := channel.NewDynamic(settingsrepo.NewPostgresRepository(conn), logger)
		if err := dyn.Seed(ctx, cfg.RequiredChannelList()); err != nil {
			log.Fatalf("seed channels: %v", err)
		}
		channels, err := dyn.RequiredChannels(ctx)
		if err != nil {
			log.Fatalf("read channels: %v", err)
		}
		log.Printf("required channels: %v", channels)
	}

	log.Println("Seed complete.")
}
