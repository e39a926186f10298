// File: database/repository/ledger/professionalMongoCrud.go
package ledgerRepo

import (
	"fmt"
	"time"

	"homely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GetProfessionalByID retrieves the professional profile slice needed for
// disbursement. Profile management itself lives outside this core.
func (r *MongoLedgerRepo) GetProfessionalByID(id string) (*models.Professional, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var p models.Professional
	if err := r.professionalColl.FindOne(ctx, bson.M{"id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch professional with id %s: %w", id, err)
	}
	return &p, nil
}
