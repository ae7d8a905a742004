package report

import (
	db "github.com/lueurxax/hotel-dashboard/internal/storage"
)

// Panel names.
const (
	PanelMonthlyRevenue      = "monthly_revenue"
	PanelRevenueByHotel      = "revenue_by_hotel"
	PanelTopCustomers        = "top_customers"
	PanelRevenueByChargeType = "revenue_by_charge_type"
	PanelRoomTypePerformance = "room_type_performance"
	PanelOccupancyByHotel    = "occupancy_by_hotel"
	PanelValueVsScore        = "value_vs_score"
	PanelStaffWorkload       = "staff_workload"
)

// hotelOfStay joins a row alias "s" carrying roomId up the physical hierarchy
// to hotel "h".
const hotelOfStay = `
		JOIN room rm       ON rm.roomId = s.roomId
		JOIN wing w        ON w.wingId = rm.wingId
		JOIN building b    ON b.buildingId = w.buildingId
		JOIN hotel h       ON h.hotelId = b.hotelId`

// reservationStay pins every reservation to its first stay (lowest stayId).
// Charges belong to the reservation, not to a stay, so revenue is attributed
// through this row to exactly one room and one hotel.
const reservationStay = `
		reservation_stay AS (
			SELECT s.reservationId, s.roomId
			FROM stay s
			WHERE s.stayId = (
				SELECT MIN(s2.stayId) FROM stay s2 WHERE s2.reservationId = s.reservationId
			)
		)`

type panelQuery struct {
	name  string
	title string
	build func(d db.Dialect, opts Options) (string, []any)
}

var dashboardPanels = []panelQuery{
	{name: PanelMonthlyRevenue, title: "Monthly revenue", build: monthlyRevenueQuery},
	{name: PanelRevenueByHotel, title: "Revenue by hotel", build: revenueByHotelQuery},
	{name: PanelTopCustomers, title: "Top customers by revenue", build: topCustomersQuery},
	{name: PanelRevenueByChargeType, title: "Revenue by charge type", build: revenueByChargeTypeQuery},
	{name: PanelRoomTypePerformance, title: "Room type performance (room nights)", build: roomTypePerformanceQuery},
	{name: PanelOccupancyByHotel, title: "Occupancy by hotel", build: occupancyByHotelQuery},
	{name: PanelValueVsScore, title: "Customer value vs qualification score", build: valueVsScoreQuery},
	{name: PanelStaffWorkload, title: "Staff workload", build: staffWorkloadQuery},
}

// PanelNames returns the dashboard panel names in display order.
func PanelNames() []string {
	names := make([]string, 0, len(dashboardPanels))
	for _, p := range dashboardPanels {
		names = append(names, p.name)
	}

	return names
}

func monthlyRevenueQuery(d db.Dialect, _ Options) (string, []any) {
	year := d.DatePart("c.dateTime", db.PartYear)
	month := d.DatePart("c.dateTime", db.PartMonth)

	return `
		SELECT
			` + year + `  AS revenue_year,
			` + month + ` AS revenue_month,
			SUM(c.cost)   AS total_revenue
		FROM charge c
		GROUP BY
			` + year + `,
			` + month + `
		ORDER BY
			revenue_year,
			revenue_month`, nil
}

func revenueByHotelQuery(_ db.Dialect, _ Options) (string, []any) {
	return `
		WITH` + reservationStay + `
		SELECT
			h.hotelId                       AS hotel_id,
			h.name                          AS hotel_name,
			SUM(c.cost)                     AS total_revenue,
			COUNT(DISTINCT c.reservationId) AS num_reservations
		FROM charge c
		JOIN reservation_stay s ON s.reservationId = c.reservationId` + hotelOfStay + `
		GROUP BY
			h.hotelId,
			h.name
		ORDER BY
			total_revenue DESC,
			h.hotelId`, nil
}

func topCustomersQuery(_ db.Dialect, opts Options) (string, []any) {
	return `
		SELECT
			p.partyId                       AS party_id,
			p.firstName                     AS first_name,
			p.lastName                      AS last_name,
			SUM(c.cost)                     AS total_revenue,
			COUNT(DISTINCT r.reservationId) AS num_reservations
		FROM party p
		JOIN reservation r ON r.partyId = p.partyId
		JOIN charge c      ON c.reservationId = r.reservationId
		GROUP BY
			p.partyId,
			p.firstName,
			p.lastName
		ORDER BY
			total_revenue DESC,
			p.partyId
		LIMIT ?`, []any{opts.TopCustomersLimit}
}

func revenueByChargeTypeQuery(_ db.Dialect, _ Options) (string, []any) {
	return `
		SELECT
			ct.chargeTypeId AS charge_type_id,
			ct.name         AS charge_type,
			SUM(c.cost)     AS total_revenue,
			COUNT(*)        AS num_charges,
			AVG(c.cost)     AS avg_charge_amount
		FROM charge c
		JOIN charge_type ct ON ct.chargeTypeId = c.chargeTypeId
		GROUP BY
			ct.chargeTypeId,
			ct.name
		ORDER BY
			total_revenue DESC,
			ct.chargeTypeId`, nil
}

// roomTypePerformanceQuery sums room-night charges per room type of each
// reservation's first stay. num_stays counts every stay in the room type whose
// reservation carries at least one room-night charge.
func roomTypePerformanceQuery(_ db.Dialect, opts Options) (string, []any) {
	return `
		WITH` + reservationStay + `,
		room_night AS (
			SELECT
				rm.roomTypeId,
				SUM(c.cost) AS total_revenue,
				AVG(c.cost) AS avg_cost
			FROM charge c
			JOIN reservation_stay s ON s.reservationId = c.reservationId
			JOIN room rm            ON rm.roomId = s.roomId
			WHERE c.chargeTypeId = ?
			GROUP BY rm.roomTypeId
		),
		room_stays AS (
			SELECT
				rm.roomTypeId,
				COUNT(*) AS num_stays
			FROM stay s
			JOIN room rm ON rm.roomId = s.roomId
			WHERE EXISTS (
				SELECT 1 FROM charge c
				WHERE c.reservationId = s.reservationId
				  AND c.chargeTypeId = ?
			)
			GROUP BY rm.roomTypeId
		)
		SELECT
			rt.roomTypeId              AS room_type_id,
			rt.name                    AS room_type,
			COALESCE(rs.num_stays, 0)  AS num_stays,
			rn.total_revenue           AS total_revenue,
			rn.avg_cost                AS avg_revenue_per_stay
		FROM room_type rt
		JOIN room_night rn      ON rn.roomTypeId = rt.roomTypeId
		LEFT JOIN room_stays rs ON rs.roomTypeId = rt.roomTypeId
		ORDER BY
			total_revenue DESC,
			rt.roomTypeId`, []any{opts.RoomNightChargeTypeID, opts.RoomNightChargeTypeID}
}

// occupancyByHotelQuery keeps hotels without stays in the window through the
// LEFT JOIN; their ratio is 0 because every listed hotel has at least one room.
func occupancyByHotelQuery(d db.Dialect, opts Options) (string, []any) {
	return `
		SELECT
			h.hotelId                 AS hotel_id,
			h.name                    AS hotel_name,
			COUNT(DISTINCT s.stayId)  AS num_stays,
			COUNT(DISTINCT rm.roomId) AS total_rooms,
			CAST(COUNT(DISTINCT s.stayId) AS DOUBLE PRECISION)
				/ COUNT(DISTINCT rm.roomId) AS stays_per_room_ratio
		FROM hotel h
		JOIN building b ON b.hotelId = h.hotelId
		JOIN wing w     ON w.buildingId = b.buildingId
		JOIN room rm    ON rm.wingId = w.wingId
		LEFT JOIN stay s
			   ON s.roomId = rm.roomId
			  AND ` + d.Timestamp("s.checkInTime") + ` >= ` + d.Timestamp("?") + `
			  AND ` + d.Timestamp("s.checkInTime") + ` <  ` + d.Timestamp("?") + `
		GROUP BY
			h.hotelId,
			h.name
		ORDER BY
			stays_per_room_ratio DESC,
			h.hotelId`, []any{d.TimeArg(opts.OccupancyFrom), d.TimeArg(opts.OccupancyTo)}
}

func valueVsScoreQuery(_ db.Dialect, _ Options) (string, []any) {
	return `
		SELECT
			cq.score                  AS qualification_score,
			COUNT(DISTINCT p.partyId) AS num_customers,
			SUM(c.cost)               AS total_revenue,
			AVG(c.cost)               AS avg_revenue_per_customer
		FROM customer_qualification cq
		JOIN party p       ON p.partyId = cq.partyId
		JOIN reservation r ON r.partyId = p.partyId
		JOIN charge c      ON c.reservationId = r.reservationId
		GROUP BY
			cq.score
		ORDER BY
			qualification_score DESC`, nil
}

func staffWorkloadQuery(_ db.Dialect, _ Options) (string, []any) {
	return `
		SELECT
			s.staffId                  AS staff_id,
			s.firstName                AS first_name,
			s.lastName                 AS last_name,
			s.occupation               AS occupation,
			COUNT(DISTINCT t.taskId)   AS num_tasks,
			COUNT(DISTINCT se.eventId) AS num_events_supported
		FROM staff s
		LEFT JOIN task t         ON t.staffId = s.staffId
		LEFT JOIN staff_event se ON se.staffId = s.staffId
		GROUP BY
			s.staffId,
			s.firstName,
			s.lastName,
			s.occupation
		ORDER BY
			num_tasks DESC,
			num_events_supported DESC,
			s.staffId`, nil
}
