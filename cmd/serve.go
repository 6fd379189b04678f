// cmd/serve.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/log"
	"github.com/markb/tably/internal/oauth"
	"github.com/markb/tably/internal/observability"
	"github.com/markb/tably/internal/server"
	"github.com/markb/tably/internal/storage/backend"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tably server",
	Long:  `Starts the HTTP server with the admin API, the public ordering API, and the realtime websocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		port, _ := cmd.Flags().GetInt("port")
		host, _ := cmd.Flags().GetString("host")

		if err := log.Init(log.DefaultConfig().FromEnv()); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		jwtSecret := os.Getenv("TABLY_JWT_SECRET")
		if jwtSecret == "" {
			jwtSecret = "super-secret-jwt-key-please-change-in-production"
			fmt.Println("Warning: Using default JWT secret. Set TABLY_JWT_SECRET in production.")
		}

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database not found at %s. Run 'tably init' first", dbPath)
		}

		tel, err := observability.Init(cmd.Context(), observability.DefaultConfig().FromEnv())
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer tel.Cleanup()

		database, err := db.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		if err := database.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		cfg := buildServerConfig(cmd, jwtSecret)
		cfg.Telemetry = tel
		srv, err := server.New(database, cfg)
		if err != nil {
			return fmt.Errorf("failed to build server: %w", err)
		}

		addr := fmt.Sprintf("%s:%d", host, port)
		fmt.Printf("Starting tably on %s\n", addr)
		fmt.Printf("  Admin API:  http://%s/admin/v1\n", addr)
		fmt.Printf("  Public API: http://%s/public/v1\n", addr)
		fmt.Printf("  Realtime:   ws://%s/realtime/v1/ws\n", addr)

		// Serve in the background so signals can drain connections.
		errCh := make(chan error, 1)
		go func() {
			domain, _ := cmd.Flags().GetString("https-domain")
			if domain != "" {
				certDir, _ := cmd.Flags().GetString("cert-dir")
				errCh <- srv.ListenAndServeTLS(domain, certDir, ":443", ":80")
				return
			}
			errCh <- srv.ListenAndServe(addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			fmt.Printf("Received %s, shutting down\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

// buildServerConfig assembles the server config from flags and TABLY_*
// environment variables. Flags win over the environment.
func buildServerConfig(cmd *cobra.Command, jwtSecret string) server.Config {
	cfg := server.Config{JWTSecret: jwtSecret}

	cfg.BaseURL = os.Getenv("TABLY_BASE_URL")
	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	cfg.StorageBackend = os.Getenv("TABLY_STORAGE_BACKEND")
	if sb, _ := cmd.Flags().GetString("storage"); sb != "" {
		cfg.StorageBackend = sb
	}
	cfg.StoragePath = os.Getenv("TABLY_STORAGE_PATH")
	if sp, _ := cmd.Flags().GetString("storage-path"); sp != "" {
		cfg.StoragePath = sp
	}
	cfg.S3 = backend.S3Config{
		Bucket:          os.Getenv("TABLY_S3_BUCKET"),
		Region:          os.Getenv("TABLY_S3_REGION"),
		Endpoint:        os.Getenv("TABLY_S3_ENDPOINT"),
		AccessKeyID:     os.Getenv("TABLY_S3_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("TABLY_S3_SECRET_KEY"),
		UsePathStyle:    os.Getenv("TABLY_S3_PATH_STYLE") == "true",
	}

	cfg.GoogleOAuth = oauth.Config{
		ClientID:     os.Getenv("TABLY_GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("TABLY_GOOGLE_CLIENT_SECRET"),
	}
	cfg.GoogleOAuth.Enabled = cfg.GoogleOAuth.ClientID != "" && cfg.GoogleOAuth.ClientSecret != ""

	return cfg
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("db", "tably.db", "Path to database file")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("base-url", "", "Public origin for QR payloads and OAuth callbacks")
	serveCmd.Flags().String("storage", "", "Image storage backend: local or s3")
	serveCmd.Flags().String("storage-path", "", "Directory for local image storage")
	serveCmd.Flags().String("https-domain", "", "Serve HTTPS with automatic certificates for this domain")
	serveCmd.Flags().String("cert-dir", "certs", "Directory to cache certificates")
}
