package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/marketboard/bot"
	"github.com/web3guy0/marketboard/exec"
)

const (
	msgUnexpected    = "An unexpected error occurred"
	msgValidation    = "Validation error"
	msgGTDExpiration = "Expiration timestamp is required for GTD orders"

	defaultFeeRateBps = 100
	maxOrderBody      = 64 << 10
)

// fieldErrors collects messages per request field. It marshals to the
// {"_errors": [...], "<field>": {"_errors": [...]}} shape.
type fieldErrors struct {
	form   []string
	fields map[string][]string
	order  []string
}

func (e *fieldErrors) add(field, msg string) {
	if e.fields == nil {
		e.fields = map[string][]string{}
	}
	if _, seen := e.fields[field]; !seen {
		e.order = append(e.order, field)
	}
	e.fields[field] = append(e.fields[field], msg)
}

func (e *fieldErrors) empty() bool {
	return len(e.form) == 0 && len(e.fields) == 0
}

func (e *fieldErrors) MarshalJSON() ([]byte, error) {
	out := map[string]any{"_errors": append([]string{}, e.form...)}
	for _, f := range e.order {
		out[f] = map[string]any{"_errors": e.fields[f]}
	}
	return json.Marshal(out)
}

// parseOrder validates a place-order body
func parseOrder(body []byte) (exec.OrderRequest, *fieldErrors) {
	errs := &fieldErrors{}
	req := exec.OrderRequest{OrderType: exec.OrderTypeGTC, FeeRateBps: defaultFeeRateBps}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		errs.form = append(errs.form, "Expected object")
		return req, errs
	}

	// tokenID
	switch v := raw["tokenID"].(type) {
	case string:
		if v == "" {
			errs.add("tokenID", "Token ID is required")
		}
		req.TokenID = v
	default:
		errs.add("tokenID", typeMessage("string", raw, "tokenID"))
	}

	// price, size
	if d, ok := number(errs, raw, "price"); ok {
		if !d.IsPositive() {
			errs.add("price", "Price must be positive")
		}
		req.Price = d
	}
	if d, ok := number(errs, raw, "size"); ok {
		if !d.IsPositive() {
			errs.add("size", "Size must be positive")
		}
		req.Size = d
	}

	// side
	switch v, _ := raw["side"].(string); exec.Side(v) {
	case exec.SideBuy, exec.SideSell:
		req.Side = exec.Side(v)
	default:
		errs.add("side", "Side must be either BUY or SELL")
	}

	// orderType defaults to GTC
	if v, present := raw["orderType"]; present {
		s, _ := v.(string)
		switch exec.OrderType(s) {
		case exec.OrderTypeGTC, exec.OrderTypeGTD, exec.OrderTypeFOK:
			req.OrderType = exec.OrderType(s)
		default:
			errs.add("orderType", "Order type must be GTC, GTD, or FOK")
		}
	}

	// expiration is optional
	if _, present := raw["expiration"]; present {
		if d, ok := number(errs, raw, "expiration"); ok {
			req.Expiration = d.IntPart()
		}
	}

	// feeRateBps defaults to 100
	if _, present := raw["feeRateBps"]; present {
		if d, ok := number(errs, raw, "feeRateBps"); ok {
			req.FeeRateBps = d.IntPart()
		}
	}

	return req, errs
}

// number reads a JSON number field, recording a type error otherwise
func number(errs *fieldErrors, raw map[string]any, field string) (decimal.Decimal, bool) {
	n, ok := raw[field].(json.Number)
	if !ok {
		errs.add(field, typeMessage("number", raw, field))
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		errs.add(field, "Expected number, received nan")
		return decimal.Zero, false
	}
	return d, true
}

func typeMessage(want string, raw map[string]any, field string) string {
	v, present := raw[field]
	if !present {
		return "Required"
	}
	return fmt.Sprintf("Expected %s, received %s", want, jsonType(v))
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	default:
		return "object"
	}
}

// statusFor maps an order error kind to its HTTP status
func statusFor(kind exec.ErrorKind) int {
	switch kind {
	case exec.KindInvalidTokenID, exec.KindInsufficientFunds:
		return http.StatusBadRequest
	case exec.KindMissingCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handlePlaceOrder(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxOrderBody))
	if err != nil {
		s.metrics.IncOrder("invalid")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgValidation})
		return
	}

	req, errs := parseOrder(body)
	if !errs.empty() {
		s.metrics.IncOrder("invalid")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   msgValidation,
			"details": errs,
		})
		return
	}

	if req.OrderType == exec.OrderTypeGTD && req.Expiration == 0 {
		s.metrics.IncOrder("invalid")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgGTDExpiration})
		return
	}

	resp, err := s.trader.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		var orderErr *exec.Error
		if errors.As(err, &orderErr) {
			s.metrics.IncOrder(string(orderErr.Kind))
			s.notifier.NotifyOrderFailed(string(orderErr.Kind), orderErr.Message)
			c.JSON(statusFor(orderErr.Kind), gin.H{
				"success":   false,
				"error":     orderErr.Message,
				"errorType": orderErr.Kind,
			})
			return
		}

		log.Error().Err(err).Msg("Order placement error")
		s.metrics.IncOrder(string(exec.KindUnknown))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msgUnexpected})
		return
	}

	s.metrics.IncOrder("placed")
	s.notifier.NotifyOrder(bot.OrderNotice{
		OrderID:   resp.OrderID,
		Status:    resp.Status,
		TokenID:   req.TokenID,
		Side:      string(req.Side),
		OrderType: string(req.OrderType),
		Price:     req.Price,
		Size:      req.Size,
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "order": resp})
}
