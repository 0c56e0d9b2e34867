package cmd

import (
	"errors"
	"fmt"

	"github.com/kube-rca/sage/internal/client"
	"github.com/kube-rca/sage/internal/db"
	"github.com/kube-rca/sage/internal/knowledge"
	"github.com/kube-rca/sage/internal/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCollection string

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Chunk, embed and store knowledge documents (.txt, .md, .json)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()

		pg := &db.Postgres{Pool: pool}
		if err := pg.EnsureKnowledgeSchema(ctx); err != nil {
			return err
		}

		_, embedder, err := client.New(ctx, cfg.LLM)
		if err != nil {
			return err
		}
		if embedder == nil {
			return errors.New("no embedding backend configured: set AI_API_KEY")
		}

		collection := model.NormalizeCollection(ingestCollection)
		ingester := knowledge.NewIngester(pg, embedder, cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap, logger)

		var failed int
		for _, path := range args {
			n, err := ingester.IngestFile(ctx, path, collection)
			if err != nil {
				failed++
				logger.Error("ingest failed", zap.String("path", path), zap.Error(err))
				continue
			}
			logger.Info("ingested", zap.String("path", path), zap.String("collection", collection), zap.Int("chunks", n))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", model.CollectionDocuments, "target collection (documents, playbooks, incidents)")
}
