package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/repository/specification"
	"github.com/KayTeo/mimir-extension/internal/repository/unitofwork"
	"github.com/KayTeo/mimir-extension/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.UserRepository())
	assert.NotNil(t, uow.DatasetRepository())
	assert.NotNil(t, uow.DataPointRepository())
	assert.NotNil(t, uow.AssociationRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	// Verify Data Access (implies columns exist)
	t.Run("Check User Repository", func(t *testing.T) {
		count, err := uow.UserRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("User count: %d", count)
	})

	t.Run("Check Dataset Repository", func(t *testing.T) {
		count, err := uow.DatasetRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Dataset count: %d", count)
	})

	t.Run("Check Transactional Capture Write", func(t *testing.T) {
		userId := uuid.New()
		user := &entity.User{
			Id:     userId,
			Email:  "test-integration-" + uuid.New().String() + "@example.com",
			Status: entity.UserStatusActive,
		}

		datasetId := uuid.New()
		dataset := &entity.Dataset{
			Id:     datasetId,
			Name:   "integration-dataset-" + uuid.New().String(),
			UserId: userId,
		}

		// Setup DB Data
		err := uow.UserRepository().Create(context.Background(), user)
		assert.NoError(t, err)
		err = uow.DatasetRepository().Create(context.Background(), dataset)
		assert.NoError(t, err)

		// Transaction Test: data point + association must land together,
		// the same shape the capture gateway writes.
		ctx := context.Background()
		err = uow.Begin(ctx)
		assert.NoError(t, err)
		defer uow.Rollback()

		pointId := uuid.New()
		point := &entity.DataPoint{
			Id:      pointId,
			UserId:  userId,
			Content: "###QUESTION### What is tested? ###ANSWER### The capture write path.",
		}

		err = uow.DataPointRepository().Create(ctx, point)
		assert.NoError(t, err)

		assoc := &entity.DatasetDataPoint{
			Id:          uuid.New(),
			DatasetId:   datasetId,
			DataPointId: pointId,
			Label:       "default",
		}

		err = uow.AssociationRepository().Create(ctx, assoc)
		assert.NoError(t, err)

		err = uow.Commit()
		assert.NoError(t, err)

		// The association must be visible outside the transaction.
		members, err := uow.AssociationRepository().FindAll(context.Background(), specification.ByDatasetID{DatasetID: datasetId})
		assert.NoError(t, err)
		assert.Len(t, members, 1)

		t.Log("Successfully created DataPoint with Association in Transaction")
	})
}
