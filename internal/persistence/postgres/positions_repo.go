package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/persistence"
)

// positionsRepo implements persistence.PositionsRepo over the positions
// table. Order execution and broker reconciliation are out of scope; this
// is a durable record for dashboard reads.
type positionsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPositionsRepo creates a PostgreSQL-backed positions repository.
func NewPositionsRepo(db *sqlx.DB, timeout time.Duration) persistence.PositionsRepo {
	return &positionsRepo{db: db, timeout: timeout}
}

func (r *positionsRepo) Insert(ctx context.Context, position domain.Position) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO positions
			(position_id, symbol, direction, status, entry_price, exit_price, quantity,
			 stop_loss, target_1, target_2, signal_id, source, notes, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, query,
		position.PositionID, position.Symbol, position.Direction, position.Status,
		position.EntryPrice, position.ExitPrice, position.Quantity, position.StopLoss,
		position.Target1, position.Target2, position.SignalID, position.Source,
		position.Notes, position.OpenedAt, position.ClosedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate position: %w", err)
		}
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

func (r *positionsRepo) Update(ctx context.Context, position domain.Position) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE positions SET
			status = $2, exit_price = $3, quantity = $4, stop_loss = $5,
			target_1 = $6, target_2 = $7, notes = $8, closed_at = $9
		WHERE position_id = $1`

	_, err := r.db.ExecContext(ctx, query,
		position.PositionID, position.Status, position.ExitPrice, position.Quantity,
		position.StopLoss, position.Target1, position.Target2, position.Notes, position.ClosedAt)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	return nil
}

func (r *positionsRepo) GetByID(ctx context.Context, positionID string) (*domain.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowxContext(ctx, positionSelectQuery+` WHERE position_id = $1`, positionID)
	position, err := scanPositionRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get position by id: %w", err)
	}
	return position, nil
}

func (r *positionsRepo) ListOpen(ctx context.Context) ([]domain.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, positionSelectQuery+` WHERE status = $1 ORDER BY opened_at DESC`, domain.PositionOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		position, err := scanPositionFromRows(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *position)
	}
	return positions, rows.Err()
}

const positionSelectQuery = `
	SELECT position_id, symbol, direction, status, entry_price, exit_price, quantity,
	       stop_loss, target_1, target_2, signal_id, source, notes, opened_at, closed_at
	FROM positions`

func scanPositionRow(row *sqlx.Row) (*domain.Position, error) {
	var p domain.Position
	err := row.Scan(&p.PositionID, &p.Symbol, &p.Direction, &p.Status, &p.EntryPrice, &p.ExitPrice,
		&p.Quantity, &p.StopLoss, &p.Target1, &p.Target2, &p.SignalID, &p.Source, &p.Notes,
		&p.OpenedAt, &p.ClosedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPositionFromRows(rows *sqlx.Rows) (*domain.Position, error) {
	var p domain.Position
	err := rows.Scan(&p.PositionID, &p.Symbol, &p.Direction, &p.Status, &p.EntryPrice, &p.ExitPrice,
		&p.Quantity, &p.StopLoss, &p.Target1, &p.Target2, &p.SignalID, &p.Source, &p.Notes,
		&p.OpenedAt, &p.ClosedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}
	return &p, nil
}

// tradeEntriesRepo implements persistence.TradesRepo over the trades table
// (individual fills against a position).
type tradeEntriesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTradesRepo creates a PostgreSQL-backed trades repository.
func NewTradesRepo(db *sqlx.DB, timeout time.Duration) persistence.TradesRepo {
	return &tradeEntriesRepo{db: db, timeout: timeout}
}

func (r *tradeEntriesRepo) Insert(ctx context.Context, trade domain.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO trades (trade_id, position_id, symbol, side, price, quantity, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		trade.TradeID, trade.PositionID, trade.Symbol, trade.Side, trade.Price, trade.Quantity, trade.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func (r *tradeEntriesRepo) ListByPosition(ctx context.Context, positionID string) ([]domain.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT trade_id, position_id, symbol, side, price, quantity, executed_at
		FROM trades
		WHERE position_id = $1
		ORDER BY executed_at ASC`

	rows, err := r.db.QueryxContext(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades by position: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var trade domain.Trade
		if err := rows.Scan(&trade.TradeID, &trade.PositionID, &trade.Symbol, &trade.Side,
			&trade.Price, &trade.Quantity, &trade.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

// tradeLegsRepo implements persistence.TradeLegsRepo over the trade_legs
// table.
type tradeLegsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTradeLegsRepo creates a PostgreSQL-backed trade legs repository.
func NewTradeLegsRepo(db *sqlx.DB, timeout time.Duration) persistence.TradeLegsRepo {
	return &tradeLegsRepo{db: db, timeout: timeout}
}

func (r *tradeLegsRepo) InsertBatch(ctx context.Context, legs []domain.TradeLeg) error {
	if len(legs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trade_legs (leg_id, position_id, strike, option_type, quantity)
		VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, leg := range legs {
		if _, err := stmt.ExecContext(ctx, leg.LegID, leg.PositionID, leg.Strike, leg.OptionType, leg.Quantity); err != nil {
			return fmt.Errorf("failed to insert trade leg: %w", err)
		}
	}

	return tx.Commit()
}

func (r *tradeLegsRepo) ListByPosition(ctx context.Context, positionID string) ([]domain.TradeLeg, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT leg_id, position_id, strike, option_type, quantity
		FROM trade_legs
		WHERE position_id = $1`

	rows, err := r.db.QueryxContext(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade legs: %w", err)
	}
	defer rows.Close()

	var legs []domain.TradeLeg
	for rows.Next() {
		var leg domain.TradeLeg
		if err := rows.Scan(&leg.LegID, &leg.PositionID, &leg.Strike, &leg.OptionType, &leg.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan trade leg: %w", err)
		}
		legs = append(legs, leg)
	}
	return legs, rows.Err()
}
