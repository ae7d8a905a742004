package report

import (
	"context"
	"fmt"
	"strings"

	db "github.com/lueurxax/hotel-dashboard/internal/storage"
)

// Kind selects the entity searched on the search page.
type Kind string

const (
	KindGuest Kind = "guest"
	KindHotel Kind = "hotel"
	KindStaff Kind = "staff"
)

// Kinds lists the supported search kinds in display order.
func Kinds() []Kind {
	return []Kind{KindGuest, KindHotel, KindStaff}
}

// ParseKind normalizes a raw request value. Unknown values are returned as-is
// and report false from Valid.
func ParseKind(raw string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindGuest, KindHotel, KindStaff:
		return true
	default:
		return false
	}
}

// SearchResult is the outcome of one search. Table is empty, not nil, when no
// query ran.
type SearchResult struct {
	Kind  Kind      `json:"kind"`
	Term  string    `json:"term"`
	Table *db.Table `json:"table"`
}

// Search runs the query for kind with a case-insensitive substring match on
// term. An empty term or an unknown kind yields an empty result without
// touching storage.
func (s *Service) Search(ctx context.Context, kind Kind, term string) (*SearchResult, error) {
	term = strings.TrimSpace(term)
	result := &SearchResult{Kind: kind, Term: term, Table: &db.Table{Columns: []string{}, Rows: [][]any{}}}

	if term == "" || !kind.Valid() {
		return result, nil
	}

	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	defer conn.Release()

	query, args := searchQuery(s.store.Dialect(), kind, term)

	table, err := s.run(ctx, conn, "search_"+string(kind), query, args)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}

	if kind == KindGuest {
		table.Map("check_in", parseTimestamp)
		table.Map("check_out", parseTimestamp)
	}

	s.logger.Debug().
		Str(logFieldKind, string(kind)).
		Int("rows", table.Len()).
		Msg("search executed")

	result.Table = table

	return result, nil
}

func searchQuery(d db.Dialect, kind Kind, term string) (string, []any) {
	pattern := db.ContainsPattern(term)

	switch kind {
	case KindGuest:
		return guestSearchQuery(d), []any{pattern, pattern, pattern}
	case KindHotel:
		return hotelSearchQuery(d), []any{pattern}
	case KindStaff:
		return staffSearchQuery(d), []any{pattern, pattern, pattern}
	default:
		return "", nil
	}
}

// guestSearchQuery matches first name, last name or "first last". Stays and
// charges are aggregated per reservation before the join so neither multiplies
// the other. Reservations without stays or charges keep NULL aggregates.
func guestSearchQuery(d db.Dialect) string {
	return `
		SELECT
			r.reservationId                  AS reservation_id,
			p.firstName || ' ' || p.lastName AS customer_name,
			p.email                          AS email,
			st.check_in                      AS check_in,
			st.check_out                     AS check_out,
			ch.total_revenue                 AS total_revenue
		FROM reservation r
		JOIN party p ON p.partyId = r.partyId
		LEFT JOIN (
			SELECT
				reservationId,
				MIN(` + d.Timestamp("checkInTime") + `)  AS check_in,
				MAX(` + d.Timestamp("checkOutTime") + `) AS check_out
			FROM stay
			GROUP BY reservationId
		) st ON st.reservationId = r.reservationId
		LEFT JOIN (
			SELECT
				reservationId,
				SUM(cost) AS total_revenue
			FROM charge
			GROUP BY reservationId
		) ch ON ch.reservationId = r.reservationId
		WHERE ` + d.Contains("p.firstName") + `
		   OR ` + d.Contains("p.lastName") + `
		   OR ` + d.Contains("(p.firstName || ' ' || p.lastName)") + `
		ORDER BY
			check_in DESC NULLS LAST,
			r.reservationId`
}

// hotelSearchQuery breaks revenue of matching hotels down by month, with each
// reservation attributed to the hotel of its first stay.
func hotelSearchQuery(d db.Dialect) string {
	yearMonth := d.DatePart("c.dateTime", db.PartYearMonth)

	return `
		WITH` + reservationStay + `
		SELECT
			h.name      AS hotel_name,
			` + yearMonth + ` AS year_month,
			SUM(c.cost) AS total_revenue
		FROM charge c
		JOIN reservation_stay s ON s.reservationId = c.reservationId` + hotelOfStay + `
		WHERE ` + d.Contains("h.name") + `
		GROUP BY
			h.name,
			` + yearMonth + `
		ORDER BY
			year_month,
			hotel_name`
}

func staffSearchQuery(d db.Dialect) string {
	return `
		SELECT
			s.staffId                        AS staff_id,
			s.firstName || ' ' || s.lastName AS staff_name,
			s.occupation                     AS occupation,
			COUNT(DISTINCT t.taskId)         AS num_tasks,
			COUNT(DISTINCT se.eventId)       AS num_events_supported
		FROM staff s
		LEFT JOIN task t         ON t.staffId = s.staffId
		LEFT JOIN staff_event se ON se.staffId = s.staffId
		WHERE ` + d.Contains("s.firstName") + `
		   OR ` + d.Contains("s.lastName") + `
		   OR ` + d.Contains("(s.firstName || ' ' || s.lastName)") + `
		GROUP BY
			s.staffId,
			s.firstName,
			s.lastName,
			s.occupation
		ORDER BY
			num_tasks DESC,
			num_events_supported DESC,
			s.staffId`
}
