package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// KeyLegacyImportDone marca en system_info que la base anterior ya se importó.
const KeyLegacyImportDone = "legacy_import_done"

// LegacySuffix sufijo con el que se renombra la base anterior tras importarla.
const LegacySuffix = ".migrated"

// LegacyImportResult resumen de la importación.
type LegacyImportResult struct {
	Skipped   bool
	Reason    string
	Products  int
	History   int
	Movements int
	Settings  int
	Discarded int
}

// ImportLegacy copia una sola vez la base anterior (produtos/historico/movimentacoes) al esquema
// actual. Sólo corre si el store no tiene productos y el archivo existe; después lo renombra
// a *.migrated y no se vuelve a consultar. Los ids se conservan para mantener las referencias.
func ImportLegacy(ctx context.Context, legacyPath string, store *Store, log *logger.Logger) (res LegacyImportResult, err error) {
	if log == nil {
		log = logger.Nop()
	}
	if legacyPath == "" {
		return LegacyImportResult{Skipped: true, Reason: "sin ruta de base anterior"}, nil
	}
	if _, statErr := os.Stat(legacyPath); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return LegacyImportResult{Skipped: true, Reason: "base anterior inexistente"}, nil
		}
		return res, fmt.Errorf("legacy: %w", statErr)
	}

	settings := NewSettingsRepository(store.db)
	if done, ok, err := settings.Get(ctx, KeyLegacyImportDone); err != nil {
		return res, err
	} else if ok && done == "1" {
		return LegacyImportResult{Skipped: true, Reason: "importación ya realizada"}, nil
	}
	var liveProducts int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&liveProducts); err != nil {
		return res, fmt.Errorf("legacy: contar productos: %w", err)
	}
	if liveProducts > 0 {
		return LegacyImportResult{Skipped: true, Reason: "el store ya tiene productos"}, nil
	}

	src, err := openFile(ctx, legacyPath, true)
	if err != nil {
		return res, fmt.Errorf("legacy: %w", err)
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	if ok, err := tableExists(ctx, src, "produtos"); err != nil {
		return res, err
	} else if !ok {
		return LegacyImportResult{Skipped: true, Reason: "la base anterior no tiene produtos"}, nil
	}

	now := time.Now()
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("legacy: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// las referencias entre movimientos pueden apuntar hacia adelante
	if _, err := tx.ExecContext(ctx, `PRAGMA defer_foreign_keys = ON`); err != nil {
		return res, fmt.Errorf("legacy: defer fk: %w", err)
	}

	productIDs, err := importLegacyProducts(ctx, src, tx, now, &res)
	if err != nil {
		return res, err
	}
	if err := importLegacyHistory(ctx, src, tx, now, &res); err != nil {
		return res, err
	}
	if err := importLegacyMovements(ctx, src, tx, productIDs, now, log, &res); err != nil {
		return res, err
	}
	if err := importLegacySettings(ctx, src, tx, &res); err != nil {
		return res, err
	}
	if err := NewSettingsRepository(tx).Set(ctx, map[string]string{KeyLegacyImportDone: "1"}); err != nil {
		return res, err
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("legacy: commit: %w", err)
	}

	// el archivo ya no se consulta; si el rename falla, la marca en system_info evita reimportar
	if err := os.Rename(legacyPath, legacyPath+LegacySuffix); err != nil {
		log.Warn().Err(err).Str("path", legacyPath).Msg("no se pudo renombrar la base anterior")
	}
	log.Info().
		Int("products", res.Products).
		Int("history", res.History).
		Int("movements", res.Movements).
		Int("discarded", res.Discarded).
		Msg("base anterior importada")
	return res, nil
}

func importLegacyProducts(ctx context.Context, src *sql.DB, tx *sql.Tx, now time.Time, res *LegacyImportResult) (map[int64]bool, error) {
	activeExpr := "1"
	if ok, err := columnExists(ctx, src, "produtos", "ativo"); err != nil {
		return nil, err
	} else if ok {
		activeExpr = "COALESCE(ativo, 1)"
	}
	noteExpr := "''"
	if ok, err := columnExists(ctx, src, "produtos", "observacao"); err != nil {
		return nil, err
	} else if ok {
		noteExpr = "COALESCE(observacao, '')"
	}

	rows, err := src.QueryContext(ctx, `
		SELECT id, COALESCE(nome, ''), COALESCE(qtd_canoas, 0), COALESCE(qtd_pf, 0), `+noteExpr+`, `+activeExpr+`
		FROM produtos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("legacy: leer produtos: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	stamp := formatTime(now)
	for rows.Next() {
		var (
			id         int64
			name, note string
			qtyC, qtyP int
			active     int
		)
		if err := rows.Scan(&id, &name, &qtyC, &qtyP, &note, &active); err != nil {
			return nil, fmt.Errorf("legacy: scan produto: %w", err)
		}
		name = entity.NormalizeProductName(name)
		if name == "" {
			name = fmt.Sprintf("PRODUTO %d", id)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, name, qty_canoas, qty_pf, note, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, name, max(qtyC, 0), max(qtyP, 0), nullString(note), boolInt(active != 0), stamp, stamp,
		)
		if err != nil {
			return nil, fmt.Errorf("legacy: insertar produto %d: %w", id, err)
		}
		ids[id] = true
		res.Products++
	}
	return ids, rows.Err()
}

func importLegacyHistory(ctx context.Context, src *sql.DB, tx *sql.Tx, now time.Time, res *LegacyImportResult) error {
	if ok, err := tableExists(ctx, src, "historico"); err != nil || !ok {
		return err
	}
	rows, err := src.QueryContext(ctx, `
		SELECT COALESCE(CAST(data_hora AS TEXT), ''), COALESCE(operacao, ''), COALESCE(produto_nome, ''),
		       COALESCE(quantidade, 0), COALESCE(observacao, '')
		FROM historico ORDER BY id`)
	if err != nil {
		return fmt.Errorf("legacy: leer historico: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			at, op, product, note string
			qty                   int
		)
		if err := rows.Scan(&at, &op, &product, &qty, &note); err != nil {
			return fmt.Errorf("legacy: scan historico: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO history (created_at, operation, product_name, quantity, note) VALUES (?, ?, ?, ?, ?)`,
			legacyTime(at, now), strings.ToUpper(strings.TrimSpace(op)), product, qty, nullString(note),
		)
		if err != nil {
			return fmt.Errorf("legacy: insertar historico: %w", err)
		}
		res.History++
	}
	return rows.Err()
}

func importLegacyMovements(ctx context.Context, src *sql.DB, tx *sql.Tx, productIDs map[int64]bool, now time.Time, log *logger.Logger, res *LegacyImportResult) error {
	if ok, err := tableExists(ctx, src, "movimentacoes"); err != nil || !ok {
		return err
	}
	optional := func(column, fallback string) (string, error) {
		ok, err := columnExists(ctx, src, "movimentacoes", column)
		if err != nil || !ok {
			return fallback, err
		}
		return "COALESCE(CAST(" + column + " AS TEXT), '')", nil
	}
	cols := make([]string, 0, 5)
	for _, c := range []string{"natureza", "motivo_ajuste", "local_externo", "documento", "movimento_ref_id"} {
		expr, err := optional(c, "''")
		if err != nil {
			return err
		}
		cols = append(cols, expr)
	}

	rows, err := src.QueryContext(ctx, `
		SELECT id, COALESCE(CAST(data_hora AS TEXT), ''), COALESCE(tipo, ''), produto_id, COALESCE(quantidade, 0),
		       COALESCE(origem, ''), COALESCE(destino, ''), COALESCE(observacao, ''), `+strings.Join(cols, ", ")+`
		FROM movimentacoes ORDER BY id`)
	if err != nil {
		return fmt.Errorf("legacy: leer movimentacoes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, productID                                     int64
			qty                                               int
			at, tipo, origem, destino, note                   string
			natureza, motivo, externo, documento, refIDString string
		)
		if err := rows.Scan(&id, &at, &tipo, &productID, &qty, &origem, &destino, &note,
			&natureza, &motivo, &externo, &documento, &refIDString); err != nil {
			return fmt.Errorf("legacy: scan movimentacao: %w", err)
		}

		m, ok := legacyMovement(tipo, qty, origem, destino, natureza, motivo, externo, refIDString)
		if !ok || !productIDs[productID] {
			log.Warn().Int64("legacy_id", id).Str("tipo", tipo).Msg("movimentação anterior descartada")
			res.Discarded++
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO movements (id, created_at, type, product_id, quantity, origin, destination, note,
				nature, adjustment_reason, external_location, document, reference_movement_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, legacyTime(at, now), string(m.Type), productID, qty,
			nullString(string(m.Origin)), nullString(string(m.Destination)), nullString(strings.TrimSpace(note)),
			string(m.Nature), nullString(string(m.AdjustmentReason)), nullString(m.ExternalLocation),
			nullString(strings.TrimSpace(documento)), nullInt64(m.ReferenceMovementID),
		)
		if err != nil {
			return fmt.Errorf("legacy: insertar movimentacao %d: %w", id, err)
		}
		res.Movements++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	// devoluciones que apuntan a salidas descartadas
	_, err = tx.ExecContext(ctx, `
		UPDATE movements SET reference_movement_id = NULL
		WHERE reference_movement_id IS NOT NULL
		  AND reference_movement_id NOT IN (SELECT id FROM movements)`)
	if err != nil {
		return fmt.Errorf("legacy: limpiar referencias: %w", err)
	}
	return nil
}

// legacyMovement traduce una fila anterior; ok=false si no tiene arreglo posible.
func legacyMovement(tipo string, qty int, origem, destino, natureza, motivo, externo, refID string) (*entity.Movement, bool) {
	t, ok := entity.ParseMovementType(tipo)
	if !ok || qty <= 0 {
		return nil, false
	}
	origin, okO := legacyLocation(origem)
	dest, okD := legacyLocation(destino)
	if !okO || !okD {
		return nil, false
	}
	nature, ok := entity.ParseNature(natureza)
	if !ok {
		nature = entity.NatureNormal
	}
	m := &entity.Movement{Type: t, Quantity: qty, Origin: origin, Destination: dest, Nature: nature}

	switch t {
	case entity.MovementEntry:
		m.Origin = ""
		if dest == "" {
			return nil, false
		}
	case entity.MovementExit:
		m.Destination = ""
		if origin == "" {
			return nil, false
		}
	case entity.MovementTransfer:
		if origin == "" || dest == "" || origin == dest {
			return nil, false
		}
	}

	switch nature {
	case entity.NatureExternalTransfer:
		m.ExternalLocation = strings.TrimSpace(externo)
	case entity.NatureAdjustment:
		if r, ok := entity.ParseAdjustmentReason(motivo); ok {
			m.AdjustmentReason = r
		}
	case entity.NatureReturn:
		var ref int64
		if _, err := fmt.Sscan(strings.TrimSpace(refID), &ref); err == nil && ref > 0 {
			m.ReferenceMovementID = &ref
		}
	}
	return m, true
}

// legacyLocation acepta también el nombre completo usado en algunas filas antiguas.
func legacyLocation(s string) (entity.Location, bool) {
	switch strings.ToUpper(strings.Join(strings.Fields(s), " ")) {
	case "PASSO FUNDO", "PASSO_FUNDO":
		return entity.LocationPF, true
	}
	return entity.ParseLocation(s)
}

func importLegacySettings(ctx context.Context, src *sql.DB, tx *sql.Tx, res *LegacyImportResult) error {
	if ok, err := tableExists(ctx, src, "system_info"); err != nil || !ok {
		return err
	}
	rows, err := src.QueryContext(ctx, `SELECT key, COALESCE(value, '') FROM system_info`)
	if err != nil {
		return fmt.Errorf("legacy: leer system_info: %w", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("legacy: scan system_info: %w", err)
		}
		// sólo la configuración de backup tiene sentido en el esquema nuevo
		if strings.HasPrefix(k, "backup_") {
			values[k] = v
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	res.Settings = len(values)
	return NewSettingsRepository(tx).Set(ctx, values)
}

// legacyTime normaliza data_hora al formato del store; vacío o ilegible = now.
func legacyTime(s string, now time.Time) string {
	if t := parseTime(strings.TrimSpace(s)); !t.IsZero() {
		return formatTime(t)
	}
	return formatTime(now)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
