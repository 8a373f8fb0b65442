package store

import (
	"context"
	"fmt"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/lib/pq"
)

// Load retrieves all items and customers in their saved order
func (s *Store) Load(ctx context.Context) ([]models.Item, []models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "Store.Load")
	defer span.End()

	var items []models.Item
	if err := s.db.SelectContext(ctx, &items,
		"SELECT id, name, price, quantity FROM items ORDER BY position, id"); err != nil {
		return nil, nil, fmt.Errorf("failed to load items: %w", err)
	}

	var customers []models.Customer
	if err := s.db.SelectContext(ctx, &customers,
		"SELECT id, name, email, phone FROM customers ORDER BY position, id"); err != nil {
		return nil, nil, fmt.Errorf("failed to load customers: %w", err)
	}

	return items, customers, nil
}

// Save replaces the stored items and customers within a single transaction
func (s *Store) Save(ctx context.Context, items []models.Item, customers []models.Customer) error {
	ctx, span := util.StartSpan(ctx, "Store.Save")
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	itemIDs := make([]string, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM items WHERE NOT (id = ANY($1))", pq.Array(itemIDs)); err != nil {
		return fmt.Errorf("failed to prune items: %w", err)
	}

	for i, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, name, price, quantity, position)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, price = EXCLUDED.price, quantity = EXCLUDED.quantity,
				position = EXCLUDED.position, updated_at = NOW()`,
			item.ID, item.Name, item.Price, item.Quantity, i)
		if err != nil {
			return fmt.Errorf("failed to save item %s: %w", item.ID, err)
		}
	}

	customerIDs := make([]string, len(customers))
	for i, customer := range customers {
		customerIDs[i] = customer.ID
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM customers WHERE NOT (id = ANY($1))", pq.Array(customerIDs)); err != nil {
		return fmt.Errorf("failed to prune customers: %w", err)
	}

	for i, customer := range customers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO customers (id, name, email, phone, position)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
				position = EXCLUDED.position, updated_at = NOW()`,
			customer.ID, customer.Name, customer.Email, customer.Phone, i)
		if err != nil {
			return fmt.Errorf("failed to save customer %s: %w", customer.ID, err)
		}
	}

	return tx.Commit()
}
