package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/achilles-kt/solace-app/config"
	"github.com/achilles-kt/solace-app/controller"
	"github.com/achilles-kt/solace-app/dao"
	"github.com/achilles-kt/solace-app/ledger"
	"github.com/achilles-kt/solace-app/logic"
	"github.com/achilles-kt/solace-app/metering"
	"github.com/achilles-kt/solace-app/middleware"
	"github.com/achilles-kt/solace-app/models"
	"github.com/achilles-kt/solace-app/pkg"
)

func main() {
	// Initialize config
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run main.go <config.yaml>")
	}
	configFile := os.Args[1]
	if err := config.LoadConfig(configFile); err != nil {
		log.Fatalf("Failed to load config from %s: %v", configFile, err)
	}

	// Initialize database
	db, err := gorm.Open(postgres.Open(config.GlobalConfig.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db.AutoMigrate(&models.User{}, &models.Persona{}, &models.Conversation{}, &models.Message{}, &models.CoinTransaction{})

	// Initialize DAOs
	userDAO := dao.NewUserDAO(db)
	personaDAO := dao.NewPersonaDAO(db)
	convoDAO := dao.NewConversationDAO(db)
	messageDAO := dao.NewMessageDAO(db)
	txDAO := dao.NewCoinTransactionDAO(db)

	if err := seedPersonas(personaDAO); err != nil {
		log.Fatalf("Failed to seed personas: %v", err)
	}

	// Initialize the responder; no API key selects the stub
	var responder pkg.Responder
	if config.GlobalConfig.Chat.APIKey != "" {
		responder = pkg.NewChatClient(
			config.GlobalConfig.Chat.BaseURL,
			config.GlobalConfig.Chat.APIKey,
			config.GlobalConfig.Chat.Model,
		)
	} else {
		log.Println("chat.api_key not set, using stub responder")
		responder = pkg.NewStubResponder()
	}

	// Initialize the coin ledger and session manager
	coins := ledger.NewLedger(userDAO, ledger.Options{
		StartingGrant: config.GlobalConfig.Billing.StartingGrant,
		Journal:       txDAO,
		Notify: func(e ledger.Event) {
			if e.Kind == ledger.EventPersistenceWarning {
				log.Printf("balance persistence lagging for %s: %v", e.UserID, e.Err)
			}
		},
	})
	manager := metering.NewManager(coins, metering.ManagerOptions{
		Notify: func(e metering.Event) {
			if e.Kind == metering.EventFundsExhausted {
				log.Printf("funds exhausted for %s on persona %d (balance %d)", e.UserID, e.PersonaID, e.Balance)
			}
		},
	})

	// Initialize Logics
	userLogic := logic.NewUserLogic(userDAO, coins, manager)
	convoLogic := logic.NewConversationLogic(personaDAO, convoDAO, coins, manager)
	messageLogic := logic.NewMessageLogic(convoDAO, messageDAO, personaDAO, coins, manager, responder, config.GlobalConfig.Chat.MaxHistory)
	callLogic := logic.NewCallLogic(personaDAO, coins, manager)
	rewardLogic := logic.NewRewardLogic(txDAO, coins)

	// Initialize Controllers
	userCtrl := controller.NewUserController(userLogic)
	personaCtrl := controller.NewPersonaController(personaDAO)
	convoCtrl := controller.NewConversationController(convoLogic)
	messageCtrl := controller.NewMessageController(messageLogic)
	callCtrl := controller.NewCallController(callLogic)
	storeCtrl := controller.NewStoreController(rewardLogic)

	// Setup Gin router
	r := gin.Default()
	r.POST("/auth/anonymous", userCtrl.LoginAnonymously)
	r.POST("/auth/logout", middleware.Auth, userCtrl.Logout)
	r.GET("/user", middleware.Auth, userCtrl.GetUser)
	r.GET("/personas", middleware.Auth, personaCtrl.GetPersonas)
	r.POST("/conversations", middleware.Auth, convoCtrl.OpenConversation)
	r.GET("/conversations", middleware.Auth, convoCtrl.GetConversations)
	r.DELETE("/conversations/personas/:persona_id", middleware.Auth, convoCtrl.CloseConversation)
	r.POST("/conversations/:id/messages", middleware.Auth, messageCtrl.AddMessage)
	r.GET("/conversations/:id/messages", middleware.Auth, messageCtrl.GetMessages)
	r.POST("/messages/:id/unlock", middleware.Auth, messageCtrl.UnlockMessage)
	r.POST("/calls", middleware.Auth, callCtrl.StartCall)
	r.POST("/calls/:id/connect", middleware.Auth, callCtrl.ConnectCall)
	r.GET("/calls/:id/events", middleware.Auth, callCtrl.CallEvents)
	r.DELETE("/calls/:id", middleware.Auth, callCtrl.Hangup)
	r.GET("/store/packs", middleware.Auth, storeCtrl.GetPacks)
	r.POST("/store/purchase", middleware.Auth, storeCtrl.Purchase)
	r.POST("/store/ad-reward", middleware.Auth, storeCtrl.AdReward)
	r.POST("/store/referral", middleware.Auth, storeCtrl.ReferralReward)
	r.POST("/store/deal", middleware.Auth, storeCtrl.DealReward)
	r.GET("/store/history", middleware.Auth, storeCtrl.GetHistory)

	// Run server
	if err := r.Run(fmt.Sprintf(":%d", config.GlobalConfig.Server.Port)); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// seedPersonas fills an empty catalog so a fresh install has someone to talk
// to. Installs with their own catalog rows are left untouched.
func seedPersonas(personaDAO *dao.PersonaDAO) error {
	n, err := personaDAO.Count()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	log.Println("persona catalog empty, seeding defaults")
	return personaDAO.Seed([]models.Persona{
		{
			Name:            "Priya",
			Tagline:         "Your late-night confidante",
			ImageURL:        "https://images.unsplash.com/photo-1534528741775-53994a69daeb?w=600&q=80",
			PricePerMin:     15,
			PricePerMessage: 2,
			UnlockPrice:     15,
			SystemPrompt:    "You are Priya, a warm and playful companion. Keep replies short and personal.",
			IsActive:        true,
		},
		{
			Name:            "Meera",
			Tagline:         "Sweet, mysterious, always listening",
			ImageURL:        "https://images.unsplash.com/photo-1529626455594-4ff0802cfb7e?w=600&q=80",
			PricePerMin:     10,
			PricePerMessage: 2,
			UnlockPrice:     15,
			SystemPrompt:    "You are Meera, a gentle and curious companion. Ask questions and keep the mystery.",
			IsActive:        true,
		},
		{
			Name:            "Anya",
			Tagline:         "Bold and a little dangerous",
			ImageURL:        "https://images.unsplash.com/photo-1524504388940-b1c1722653e1?w=600&q=80",
			PricePerMin:     20,
			PricePerMessage: 3,
			UnlockPrice:     20,
			SystemPrompt:    "You are Anya, confident and teasing. Keep replies sharp and flirtatious.",
			IsActive:        true,
		},
	})
}
