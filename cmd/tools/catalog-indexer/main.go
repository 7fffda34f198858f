// cmd/tools/catalog-indexer/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"widget-assistant/internal/assistant/knowledge"
	"widget-assistant/internal/common/config"
	"widget-assistant/internal/common/database"
	"widget-assistant/internal/common/errors"
	"widget-assistant/internal/common/logger"
	"widget-assistant/internal/models"
)

func main() {
	reindexCmd := flag.NewFlagSet("reindex", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	reindexConfig := reindexCmd.String("config", "", "Config file (default: search ./configs)")
	tenant := reindexCmd.String("tenant", "", "Only reindex this tenant (user_id)")
	timeout := reindexCmd.Duration("timeout", 10*time.Minute, "Overall timeout")

	validateConfig := validateCmd.String("config", "", "Config file (default: search ./configs)")
	file := validateCmd.String("file", "", "JSON file with an array of product documents (default: scan MongoDB)")
	validateTenant := validateCmd.String("tenant", "", "Only scan this tenant when reading MongoDB")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "reindex":
		reindexCmd.Parse(os.Args[2:])
		if err := runReindex(*reindexConfig, *tenant, *timeout); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		var (
			report *validationReport
			err    error
		)
		if *file != "" {
			report, err = validateFile(*file)
		} else {
			report, err = validateMongo(*validateConfig, *validateTenant)
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		report.print(os.Stdout)
		if len(report.Invalid) > 0 {
			os.Exit(2)
		}

	default:
		help()
		os.Exit(1)
	}
}

func help() {
	fmt.Println("Usage: catalog-indexer <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  reindex   Copy products from MongoDB into the Elasticsearch product index")
	fmt.Println("  validate  Check product documents against the catalog schema")
}

// productIndexer is the write side of the search index.
type productIndexer interface {
	IndexProduct(ctx context.Context, p models.Product) error
}

// productSource lists a tenant's valid products.
type productSource interface {
	Tenants(ctx context.Context) ([]string, error)
	ListProducts(ctx context.Context, userID string) ([]models.Product, error)
}

type reindexStats struct {
	Tenants int
	Indexed int
	Failed  int
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func runReindex(configPath, tenant string, timeout time.Duration) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.Database.Elasticsearch.Enabled {
		return fmt.Errorf("database.elasticsearch.enabled is false")
	}
	log := logger.NewStructured(cfg.Logging.Level, "console")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	mongoClient, err := database.NewMongo(ctx, cfg.Database.Mongo)
	if err != nil {
		return err
	}
	defer mongoClient.Close(context.Background())

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return err
	}
	index := cfg.Database.Elasticsearch.ProductIndex
	if err := es.EnsureIndex(ctx, index, knowledge.ProductIndexMapping); err != nil {
		return err
	}

	catalog := knowledge.NewMongoCatalog(mongoClient.Products(), nil, nil, log)
	stats, err := reindex(ctx, catalog, knowledge.NewElasticIndex(es.Client, index), tenant, log)
	if err != nil {
		return err
	}
	fmt.Printf("Reindexed %d products for %d tenants (%d failed)\n", stats.Indexed, stats.Tenants, stats.Failed)
	return nil
}

func reindex(ctx context.Context, src productSource, dst productIndexer, tenant string, log logger.Logger) (*reindexStats, error) {
	tenants := []string{tenant}
	if tenant == "" {
		var err error
		if tenants, err = src.Tenants(ctx); err != nil {
			return nil, err
		}
	}

	stats := &reindexStats{}
	for _, t := range tenants {
		products, err := src.ListProducts(ctx, t)
		if err != nil {
			return stats, fmt.Errorf("list products for %s: %w", t, err)
		}
		stats.Tenants++
		for _, p := range products {
			if err := dst.IndexProduct(ctx, p); err != nil {
				stats.Failed++
				log.Warn("index failed", map[string]interface{}{
					"userId":    t,
					"productId": p.ID,
					"error":     err.Error(),
				})
				continue
			}
			stats.Indexed++
		}
		log.Info("tenant reindexed", map[string]interface{}{"userId": t, "products": len(products)})
	}
	return stats, nil
}

type invalidDocument struct {
	ID     string
	Reason string
}

type validationReport struct {
	Checked int
	Invalid []invalidDocument
}

func (r *validationReport) check(doc map[string]interface{}) {
	r.Checked++
	if err := knowledge.ValidateProduct(doc); err != nil {
		inv := invalidDocument{ID: fmt.Sprint(doc["_id"]), Reason: err.Error()}
		if stdErr, ok := errors.AsStandardError(err); ok {
			inv.Reason = stdErr.Details
		}
		if inv.ID == "<nil>" {
			inv.ID = fmt.Sprint(doc["id"])
		}
		r.Invalid = append(r.Invalid, inv)
	}
}

func (r *validationReport) print(w io.Writer) {
	fmt.Fprintf(w, "Checked %d documents, %d invalid\n", r.Checked, len(r.Invalid))
	for _, inv := range r.Invalid {
		fmt.Fprintf(w, "  %s: %s\n", inv.ID, inv.Reason)
	}
}

func validateFile(path string) (*validationReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return validateReader(f)
}

func validateReader(r io.Reader) (*validationReport, error) {
	var docs []map[string]interface{}
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode product documents: %w", err)
	}
	report := &validationReport{}
	for _, doc := range docs {
		report.check(doc)
	}
	return report, nil
}

func validateMongo(configPath, tenant string) (*validationReport, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	mongoClient, err := database.NewMongo(ctx, cfg.Database.Mongo)
	if err != nil {
		return nil, err
	}
	defer mongoClient.Close(context.Background())
	return validateCollection(ctx, mongoClient.Products(), tenant)
}

func validateCollection(ctx context.Context, products *mongo.Collection, tenant string) (*validationReport, error) {
	filter := bson.M{}
	if tenant != "" {
		filter["user_id"] = tenant
	}
	cur, err := products.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)

	report := &validationReport{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			report.Checked++
			report.Invalid = append(report.Invalid, invalidDocument{ID: "?", Reason: err.Error()})
			continue
		}
		report.check(raw)
	}
	return report, cur.Err()
}
