// Command buttergolf-admin runs one-off maintenance against the marketplace
// database: schema setup, catalog seeding, brand backfill and logo uploads.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"buttergolf/internal/config"
	"buttergolf/internal/repos"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := config.Load()
	root := &cobra.Command{
		Use:          "buttergolf-admin",
		Short:        "Maintenance tasks for the ButterGolf API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfg.DBDSN, "dsn", cfg.DBDSN, "database DSN (sqlite path or postgres:// URL)")

	open := func() (*sqlx.DB, error) { return repos.OpenDB(cfg.DBDSN) }

	root.AddCommand(
		migrateCmd(open),
		seedCmd(open),
		backfillCmd(open),
		uploadCmd(open, &cfg),
	)
	return root
}

func migrateCmd(open func() (*sqlx.DB, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and the default catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

// loadSeed reads a catalog file shaped like
//
//	brands:
//	  - slug: titleist
//	    name: Titleist
//	    models: [{name: TSR2, category: DRIVERS, year: 2022}]
func loadSeed(path string) (repos.CatalogSeed, error) {
	var seed repos.CatalogSeed
	raw, err := os.ReadFile(path)
	if err != nil {
		return seed, err
	}
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return seed, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, b := range seed.Brands {
		if strings.TrimSpace(b.Slug) == "" || strings.TrimSpace(b.Name) == "" {
			return seed, fmt.Errorf("brand %d: slug and name are required", i)
		}
	}
	return seed, nil
}

func seedCmd(open func() (*sqlx.DB, error)) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert brands and models from a YAML catalog file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed, err := loadSeed(file)
			if err != nil {
				return err
			}
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := repos.SeedCatalog(db, seed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d brands\n", len(seed.Brands))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "catalog.yaml", "catalog YAML file")
	return cmd
}

func backfillCmd(open func() (*sqlx.DB, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-brands",
		Short: "Link listings with free-text brands to catalog brands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := repos.NewProductRepo(db).BackfillBrands()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "linked %d products\n", n)
			return nil
		},
	}
}

// uploadCmd pushes brand logos named <slug>.<ext> to Cloudinary and stores
// the resulting URLs.
func uploadCmd(open func() (*sqlx.DB, error), cfg *config.Config) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "upload-assets",
		Short: "Upload brand logos from a directory to Cloudinary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.CloudinaryURL == "" {
				return fmt.Errorf("CLOUDINARY_URL is not set")
			}
			cld, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
			if err != nil {
				return err
			}
			files, err := filepath.Glob(filepath.Join(dir, "*"))
			if err != nil {
				return err
			}
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			brands := repos.NewBrandRepo(db)

			ctx := cmd.Context()
			for _, f := range files {
				slug := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
				res, err := cld.Upload.Upload(ctx, f, uploader.UploadParams{
					PublicID: slug,
					Folder:   "buttergolf/brands",
				})
				if err != nil {
					return fmt.Errorf("upload %s: %w", f, err)
				}
				if res.Error.Message != "" {
					log.Printf("[warn] %s: %s", f, res.Error.Message)
					continue
				}
				if err := brands.SetLogo(slug, res.SecureURL); err != nil {
					log.Printf("[warn] %s: no brand %q: %v", f, slug, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", slug, res.SecureURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "assets/brands", "directory of logo images")
	return cmd
}
