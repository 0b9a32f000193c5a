package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	agentsRepo "github.com/wappanel/wappanel/agents/repository"
	"github.com/wappanel/wappanel/autoresponder"
	contactsApp "github.com/wappanel/wappanel/contacts/application"
	contactsRepo "github.com/wappanel/wappanel/contacts/repository"
	conversationsApp "github.com/wappanel/wappanel/conversations/application"
	conversationsRepo "github.com/wappanel/wappanel/conversations/repository"
	"github.com/wappanel/wappanel/core/config"
	"github.com/wappanel/wappanel/core/database"
	"github.com/wappanel/wappanel/infrastructure/valkey"
	instancesRepo "github.com/wappanel/wappanel/instances/repository"
	"github.com/wappanel/wappanel/media"
	messagesApp "github.com/wappanel/wappanel/messages/application"
	messagesRepo "github.com/wappanel/wappanel/messages/repository"
	"github.com/wappanel/wappanel/pkg/crypto"
	"github.com/wappanel/wappanel/pkg/msgworker"
	"github.com/wappanel/wappanel/pkg/ttlcache"
	tenantsApp "github.com/wappanel/wappanel/tenants/application"
	tenantsRepo "github.com/wappanel/wappanel/tenants/repository"
	uiWebsocket "github.com/wappanel/wappanel/ui/websocket"
	webhookApp "github.com/wappanel/wappanel/webhook/application"
	"gorm.io/gorm"
)

var (
	db       *gorm.DB
	vkClient *valkey.Client

	tenantRepo       *tenantsRepo.TenantGormRepository
	agentRepo        *agentsRepo.AgentGormRepository
	instanceRepo     *instancesRepo.InstanceGormRepository
	contactRepo      *contactsRepo.ContactGormRepository
	conversationRepo *conversationsRepo.ConversationGormRepository
	messageRepo      *messagesRepo.MessageGormRepository

	clientCache  *tenantsApp.ClientCache
	genericCache *ttlcache.Cache
	workerPool   *msgworker.Pool
	hub          *uiWebsocket.Hub

	contactResolver *contactsApp.Resolver
	lifecycle       *conversationsApp.Lifecycle
	messageIngest   *messagesApp.Ingest
	responder       *autoresponder.Responder
	mediaStore      *media.Store
	orchestrator    *webhookApp.Orchestrator

	poolCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "wappanel",
	Short: "WhatsApp webhook ingestion and conversation service",
	Long:  "Multi-tenant ingestion pipeline for WhatsApp gateway webhooks: contacts, conversations, messages and automated replies.",
}

func init() {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("[APP] .env loaded")
	}

	time.Local = time.UTC
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringP("port", "p", "", "http port, overrides APP_PORT")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose logging, overrides APP_DEBUG")
	rootCmd.PersistentFlags().String("db-driver", "", "sqlite or postgres, overrides DB_DRIVER")
	_ = viper.BindPFlag("app_port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("app_debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("db_driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	viper.AutomaticEnv()

	cobra.OnInitialize(initApp)
}

func initApp() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("[APP] Config load failed: %v", err)
	}

	if v := viper.GetString("app_port"); v != "" {
		cfg.App.Port = v
	}
	if viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if v := viper.GetString("db_driver"); v != "" {
		cfg.Database.Driver = v
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.Security.SecretKey != "" {
		crypto.SetEncryptionKey(cfg.Security.SecretKey)
	} else {
		logrus.Warn("[APP] APP_SECRET_KEY not set, stored AI keys will not be encrypted")
	}

	if err := os.MkdirAll(cfg.Paths.Media, 0o755); err != nil {
		logrus.Errorf("[APP] Media dir: %v", err)
	}

	db, err = database.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("[APP] Database connect failed: %v", err)
	}

	tenantRepo = tenantsRepo.NewTenantGormRepository(db)
	agentRepo = agentsRepo.NewAgentGormRepository(db)
	instanceRepo = instancesRepo.NewInstanceGormRepository(db)
	contactRepo = contactsRepo.NewContactGormRepository(db)
	conversationRepo = conversationsRepo.NewConversationGormRepository(db)
	messageRepo = messagesRepo.NewMessageGormRepository(db)

	if err := runMigrations(context.Background()); err != nil {
		logrus.Fatalf("[APP] Schema migration failed: %v", err)
	}

	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Warnf("[APP] Valkey unavailable, running single-node: %v", err)
			vkClient = nil
		}
	}

	clientCache = tenantsApp.NewClientCache(tenantRepo, cfg.Cache.TenantCapacity, cfg.Cache.TenantTTL, cfg.Cache.TenantSweepInterval)
	genericCache = ttlcache.New(cfg.Cache.GenericCapacity, cfg.Cache.GenericSweepInterval)

	poolCtx, cancel := context.WithCancel(context.Background())
	poolCancel = cancel
	workerPool = msgworker.NewPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	workerPool.Start(poolCtx)

	hub = uiWebsocket.NewHub(vkClient)
	go hub.Run()

	contactResolver = contactsApp.NewResolver(contactRepo, genericCache, cfg.Cache.ContactTTL)
	lifecycle = conversationsApp.NewLifecycle(conversationRepo, agentRepo, instanceRepo, genericCache, cfg.Cache.ConversationListTTL)
	messageIngest = messagesApp.NewIngest(messageRepo, genericCache, cfg.Cache.MessagePageTTL)
	mediaStore = media.NewStore(cfg.Paths.Media)

	responder = autoresponder.NewResponder(autoresponder.ResponderDeps{
		Tenants:       clientCache,
		Agents:        agentRepo,
		Sessions:      conversationRepo,
		History:       messageRepo,
		Replies:       messageIngest,
		Broadcast:     hub,
		AI:            autoresponder.NewOpenAIClient(cfg.AI.BaseURL, cfg.AI.RequestTimeout),
		Cooldown:      cfg.AI.ReplyCooldown,
		MaxHistory:    cfg.AI.MaxHistoryTurns,
		DefaultModel:  cfg.AI.DefaultModel,
		DisableTyping: !cfg.AI.TypingEnabled,
	})

	orchestrator = webhookApp.NewOrchestrator(webhookApp.OrchestratorDeps{
		Tenants:       clientCache,
		Contacts:      contactResolver,
		Conversations: lifecycle,
		Ingest:        messageIngest,
		Lookup:        messageRepo,
		Broadcast:     hub,
		Responder:     responder,
		Media:         mediaStore,
		Pool:          workerPool,
	})
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp shuts the subsystems down in dependency order.
func StopApp() {
	logrus.Info("[APP] Stopping...")

	if poolCancel != nil {
		poolCancel()
	}
	if workerPool != nil {
		workerPool.Stop()
	}
	if clientCache != nil {
		clientCache.Stop()
	}
	if genericCache != nil {
		genericCache.Stop()
	}
	if vkClient != nil {
		vkClient.Close()
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Stopped")
}

func parseBasicAuth(entries []string) map[string]string {
	accounts := make(map[string]string)
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			logrus.Fatalln("[APP] Basic auth must use <user>:<secret> format")
		}
		accounts[parts[0]] = parts[1]
	}
	return accounts
}
