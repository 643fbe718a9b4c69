package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// IngestResultResponse represents the outcome of a vendor event delivery
type IngestResultResponse struct {
	Accepted  bool   `json:"accepted" example:"true"`
	EventID   string `json:"event_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Duplicate bool   `json:"duplicate" example:"false"`
	Reason    string `json:"reason,omitempty" example:""`
}

// DecisionResponse represents an authorization decision
type DecisionResponse struct {
	Authorized      bool    `json:"authorized" example:"true"`
	Reason          string  `json:"reason" example:"active vip permit"`
	RequiresPayment bool    `json:"requires_payment" example:"false"`
	TotalOwed       float64 `json:"total_owed,omitempty" example:"0"`
}

// SessionResponse represents a parking session
type SessionResponse struct {
	ID            string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	LicensePlate  string  `json:"license_plate" example:"ABC123"`
	LotID         string  `json:"lot_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Status        string  `json:"status" example:"active"`
	PaymentStatus string  `json:"payment_status" example:"unpaid"`
	Amount        float64 `json:"amount,omitempty" example:"12.50"`
	EntryTime     string  `json:"entry_time" example:"2025-03-04T10:00:00Z"`
}

// PermitResponse represents a parking permit
type PermitResponse struct {
	ID           string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Type         string `json:"type" example:"monthly"`
	LicensePlate string `json:"license_plate" example:"ABC123"`
	Status       string `json:"status" example:"active"`
	GlobalAccess bool   `json:"global_access" example:"false"`
}

// ViolationResponse represents a parking violation
type ViolationResponse struct {
	ID           string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	LicensePlate string  `json:"license_plate" example:"ABC123"`
	Reason       string  `json:"reason" example:"Unpaid parking"`
	Amount       float64 `json:"amount" example:"25.00"`
	Status       string  `json:"status" example:"issued"`
}

// LotDetailResponse represents a lot with occupancy derived fields
type LotDetailResponse struct {
	ID               string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	VendorLotID      string  `json:"vendor_lot_id" example:"garage-north"`
	Name             string  `json:"name" example:"North Garage"`
	Capacity         int     `json:"capacity" example:"120"`
	CurrentOccupancy int     `json:"current_occupancy" example:"87"`
	AvailableSpaces  int     `json:"available_spaces" example:"33"`
	OccupancyPercent float64 `json:"occupancy_percent" example:"72.5"`
}

// RateQuoteResponse represents an effective rate quote
type RateQuoteResponse struct {
	BaseRate     float64 `json:"base_rate" example:"4.00"`
	FinalRate    float64 `json:"final_rate" example:"6.00"`
	SurgeApplied bool    `json:"surge_applied" example:"true"`
}

// PlateReadingResponse represents a recognized plate
type PlateReadingResponse struct {
	LicensePlate string  `json:"license_plate" example:"ABC123"`
	Confidence   float64 `json:"confidence" example:"96.5"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Lotwatch Parking API",
		Version:     "v1.0.0",
		Description: "Vehicle authorization and session lifecycle engine for camera-equipped parking facilities",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/events - vendor webhook
		endpoint.New(
			endpoint.POST,
			"/events",
			endpoint.WithTags("Events"),
			endpoint.WithSummary("Ingest a vendor LPR event"),
			endpoint.WithDescription("Signature-verified webhook for the camera vendor feed. Entry and exit events drive the session lifecycle; duplicates are acknowledged from the stored event."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IngestResultResponse{}, "202", "Event accepted"),
				response.New(IngestResultResponse{Duplicate: true}, "200", "Duplicate acknowledged"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INVALID_SIGNATURE", Message: "Webhook signature verification failed"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
		),

		// POST /v1/authorize
		endpoint.New(
			endpoint.POST,
			"/authorize",
			endpoint.WithTags("Authorization"),
			endpoint.WithSummary("Authorization decision for a plate at a lot"),
			endpoint.WithDescription("Checks permits, paid sessions and outstanding violations in precedence order and returns an explainable decision."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DecisionResponse{}, "200", "Decision computed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "LOT_NOT_FOUND", Message: "Parking lot not found"}, "404", "Not Found"),
			}),
		),

		// POST /v1/sessions
		endpoint.New(
			endpoint.POST,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Open a session manually"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "201", "Session opened"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "DUPLICATE_ACTIVE_SESSION", Message: "An active session already exists"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "INVALID_ADJUSTMENT", Message: "Lot is at capacity"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "LOT_NOT_FOUND", Message: "Parking lot not found"}, "404", "Not Found"),
			}),
		),

		// POST /v1/sessions/close
		endpoint.New(
			endpoint.POST,
			"/sessions/close",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Close the active session for a plate"),
			endpoint.WithDescription("Computes the fare at exit. Unpaid sessions close as violations and issue a violation record."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session closed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_ACTIVE_SESSION", Message: "No active session for this plate"}, "404", "Not Found"),
			}),
		),

		// GET /v1/sessions
		endpoint.New(
			endpoint.GET,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Session history"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("lot_id", parameter.Query, parameter.WithDescription("Filter by lot")),
				parameter.StrParam("license_plate", parameter.Query, parameter.WithDescription("Filter by plate")),
				parameter.StrParam("status", parameter.Query, parameter.WithDescription("active, completed or violation")),
				parameter.StrParam("from", parameter.Query, parameter.WithDescription("RFC 3339 lower bound on entry time")),
				parameter.StrParam("to", parameter.Query, parameter.WithDescription("RFC 3339 upper bound on entry time")),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Max rows (default 100, cap 500)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]SessionResponse{}, "200", "History page"),
			}),
		),

		// GET /v1/sessions/active
		endpoint.New(
			endpoint.GET,
			"/sessions/active",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Active session counts per lot"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]LotDetailResponse{}, "200", "Per-lot counts"),
			}),
		),

		// POST /v1/payments
		endpoint.New(
			endpoint.POST,
			"/payments",
			endpoint.WithTags("Payments"),
			endpoint.WithSummary("Confirm a payment"),
			endpoint.WithDescription("Marks a session paid by session_id or by plate and lot. A violation session settles its linked violation and completes."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Payment recorded"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_SETTLEABLE", Message: "Payment can only be recorded for active or violation sessions"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Parking session not found"}, "404", "Not Found"),
			}),
		),

		// POST /v1/permits
		endpoint.New(
			endpoint.POST,
			"/permits",
			endpoint.WithTags("Permits"),
			endpoint.WithSummary("Create a permit"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PermitResponse{}, "201", "Permit created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "DUPLICATE_ACTIVE_PERMIT", Message: "An active permit of this type already exists"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid request"}, "400", "Bad Request"),
			}),
		),

		// GET /v1/permits
		endpoint.New(
			endpoint.GET,
			"/permits",
			endpoint.WithTags("Permits"),
			endpoint.WithSummary("List permits for a plate"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("license_plate", parameter.Query, parameter.WithDescription("Plate to list permits for")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]PermitResponse{}, "200", "Permits"),
			}),
		),

		// POST /v1/permits/:id/deactivate
		endpoint.New(
			endpoint.POST,
			"/permits/{id}/deactivate",
			endpoint.WithTags("Permits"),
			endpoint.WithSummary("Deactivate a permit"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Permit ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PermitResponse{}, "200", "Permit deactivated"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "PERMIT_NOT_FOUND", Message: "Permit not found"}, "404", "Not Found"),
			}),
		),

		// POST /v1/violations
		endpoint.New(
			endpoint.POST,
			"/violations",
			endpoint.WithTags("Violations"),
			endpoint.WithSummary("Issue a citation"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ViolationResponse{}, "201", "Violation issued"),
			}),
		),

		// POST /v1/violations/:id/settle
		endpoint.New(
			endpoint.POST,
			"/violations/{id}/settle",
			endpoint.WithTags("Violations"),
			endpoint.WithSummary("Settle a violation"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Violation ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ViolationResponse{}, "200", "Violation settled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "ALREADY_SETTLED", Message: "Violation has already been paid or dismissed"}, "409", "Conflict"),
			}),
		),

		// GET /v1/lots/:id/rate
		endpoint.New(
			endpoint.GET,
			"/lots/{id}/rate",
			endpoint.WithTags("Lots"),
			endpoint.WithSummary("Effective hourly rate quote"),
			endpoint.WithDescription("Resolves the pricing rule for the given instant and applies surge when occupancy crosses the rule threshold."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Lot ID")),
				parameter.StrParam("at", parameter.Query, parameter.WithDescription("RFC 3339 instant, defaults to now")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RateQuoteResponse{}, "200", "Quote"),
			}),
		),

		// POST /v1/lpr/recognize
		endpoint.New(
			endpoint.POST,
			"/lpr/recognize",
			endpoint.WithTags("LPR"),
			endpoint.WithSummary("Read a plate from a snapshot"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PlateReadingResponse{}, "200", "Plate recognized"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "NO_PLATE_DETECTED", Message: "No license plate detected in the image"}, "422", "Unprocessable Entity"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
