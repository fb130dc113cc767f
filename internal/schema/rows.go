package schema

import (
	"github.com/skylinemro/ro-dashboard/internal/domain"
)

// RepairOrderFromRow maps a flat row value array into a RepairOrder. The
// notes cell is returned raw; decoding the embedded history is the caller's
// concern. Derived overdue fields are not computed here.
func RepairOrderFromRow(values []any) (domain.RepairOrder, string) {
	ro := domain.RepairOrder{
		ID:                CellString(values, ROColID),
		RONumber:          CellString(values, ROColRONumber),
		PartNumber:        CellString(values, ROColPartNumber),
		SerialNumber:      CellString(values, ROColSerialNumber),
		ShopName:          CellString(values, ROColShopName),
		Status:            CellString(values, ROColStatus),
		EstimatedCost:     CellCurrency(values, ROColEstimatedCost),
		FinalCost:         CellCurrency(values, ROColFinalCost),
		PaymentTerms:      CellString(values, ROColPaymentTerms),
		TrackingNumber:    CellString(values, ROColTrackingNumber),
		CreatedAt:         CellTime(values, ROColCreatedAt),
		DroppedOffAt:      CellTime(values, ROColDroppedOffAt),
		EstimatedDelivery: CellTime(values, ROColEstimatedDelivery),
		StatusDate:        CellTime(values, ROColStatusDate),
		LastUpdated:       CellTime(values, ROColLastUpdated),
		NextUpdateDue:     CellTime(values, ROColNextUpdateDue),
	}
	return ro, CellString(values, ROColNotes)
}

// RepairOrderToRow builds the full-width row value array for a RepairOrder.
// notesCell is the already-encoded notes cell (free text plus embedded
// history); the Notes/History fields on ro are ignored here.
func RepairOrderToRow(ro domain.RepairOrder, notesCell string) []any {
	row := make([]any, ROWidth)
	row[ROColID] = ro.ID
	row[ROColRONumber] = ro.RONumber
	row[ROColPartNumber] = ro.PartNumber
	row[ROColSerialNumber] = ro.SerialNumber
	row[ROColShopName] = ro.ShopName
	row[ROColStatus] = ro.Status
	row[ROColEstimatedCost] = CurrencyCell(ro.EstimatedCost)
	row[ROColFinalCost] = CurrencyCell(ro.FinalCost)
	row[ROColPaymentTerms] = ro.PaymentTerms
	row[ROColTrackingNumber] = ro.TrackingNumber
	row[ROColCreatedAt] = DateCell(ro.CreatedAt)
	row[ROColDroppedOffAt] = DateCell(ro.DroppedOffAt)
	row[ROColEstimatedDelivery] = DateCell(ro.EstimatedDelivery)
	row[ROColStatusDate] = DateCell(ro.StatusDate)
	row[ROColLastUpdated] = DateCell(ro.LastUpdated)
	row[ROColNextUpdateDue] = DateCell(ro.NextUpdateDue)
	row[ROColNotes] = notesCell
	return row
}

// ShopFromRow maps a flat row value array into a Shop.
func ShopFromRow(values []any) domain.Shop {
	return domain.Shop{
		ID:           CellString(values, ShopColID),
		BusinessName: CellString(values, ShopColBusinessName),
		ContactName:  CellString(values, ShopColContactName),
		Phone:        CellString(values, ShopColPhone),
		Email:        CellString(values, ShopColEmail),
		PaymentTerms: CellString(values, ShopColPaymentTerms),
		Notes:        CellString(values, ShopColNotes),
	}
}

// ShopToRow builds the full-width row value array for a Shop.
func ShopToRow(s domain.Shop) []any {
	row := make([]any, ShopWidth)
	row[ShopColID] = s.ID
	row[ShopColBusinessName] = s.BusinessName
	row[ShopColContactName] = s.ContactName
	row[ShopColPhone] = s.Phone
	row[ShopColEmail] = s.Email
	row[ShopColPaymentTerms] = s.PaymentTerms
	row[ShopColNotes] = s.Notes
	return row
}
