package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/commercegate/heartland-payments/internal/domain"
	"github.com/commercegate/heartland-payments/internal/gateway"
	"github.com/commercegate/heartland-payments/internal/handshake"
	"github.com/commercegate/heartland-payments/internal/storage"
	"github.com/gin-gonic/gin"
)

// scriptedProcessor returns canned results for the HTTP flow tests.
type scriptedProcessor struct {
	chargeErr error
	voidErr   error
}

func (p *scriptedProcessor) Charge(context.Context, domain.ChargeRequest) (*domain.ChargeResult, error) {
	if p.chargeErr != nil {
		return nil, p.chargeErr
	}
	return &domain.ChargeResult{TransactionID: "txn-1"}, nil
}

func (p *scriptedProcessor) Authorize(context.Context, domain.ChargeRequest) (*domain.ChargeResult, error) {
	return &domain.ChargeResult{TransactionID: "txn-1"}, nil
}

func (p *scriptedProcessor) Capture(context.Context, string, domain.Amount) error { return nil }

func (p *scriptedProcessor) Void(context.Context, string) error { return p.voidErr }

func (p *scriptedProcessor) Refund(context.Context, string, domain.Amount) error { return nil }

func (p *scriptedProcessor) Tokenize(context.Context, domain.TokenEnvelope, string) (domain.TokenEnvelope, error) {
	return domain.MultiUseToken("durable"), nil
}

func newTestRouter(proc *scriptedProcessor) *gin.Engine {
	store := storage.NewMemoryStore()
	service := gateway.NewService(proc, store, store, false)
	handler := NewHandler(service, store, "pkapi_cert_abc", handshake.FrameTargets{
		CardNumber:     "heartlandCardNumber",
		CardExpiration: "heartlandCardExpiration",
		CardCvv:        "heartlandCardCvv",
	})
	return SetupRouter(handler, "test")
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("bad response JSON %q: %v", w.Body.String(), err)
		}
	}
	return w, decoded
}

func createMethod(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/payment-methods", gin.H{
		"token_value": "tok1",
		"card_type":   "visa",
		"last_four":   "1111",
		"exp_month":   "12",
		"exp_year":    "2030",
		"postal_code": "90210",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create method: status %d body %s", w.Code, w.Body.String())
	}
	return resp["id"].(string)
}

func TestCheckoutLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(&scriptedProcessor{})
	methodID := createMethod(t, router)

	// Authorize
	capture := false
	w, payment := doJSON(t, router, http.MethodPost, "/api/v1/payments", gin.H{
		"payment_method_id": methodID,
		"amount":            "10.00",
		"currency":          "USD",
		"capture":           capture,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create payment: status %d body %s", w.Code, w.Body.String())
	}
	if payment["state"] != "authorization" {
		t.Errorf("expected authorization, got %v", payment["state"])
	}
	paymentID := payment["id"].(string)

	// Capture the full amount (empty body).
	w, payment = doJSON(t, router, http.MethodPost, "/api/v1/payments/"+paymentID+"/capture", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("capture: status %d body %s", w.Code, w.Body.String())
	}
	if payment["state"] != "completed" {
		t.Errorf("expected completed, got %v", payment["state"])
	}

	// Partial refund.
	w, payment = doJSON(t, router, http.MethodPost, "/api/v1/payments/"+paymentID+"/refund", gin.H{
		"amount":   "5.00",
		"currency": "USD",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refund: status %d body %s", w.Code, w.Body.String())
	}
	if payment["state"] != "partially_refunded" {
		t.Errorf("expected partially_refunded, got %v", payment["state"])
	}

	// Voiding a refunded payment is a precondition violation.
	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/payments/"+paymentID+"/void", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("void in wrong state should be 409, got %d", w.Code)
	}
}

func TestCreatePayment_DeclineMapsToPaymentRequired(t *testing.T) {
	proc := &scriptedProcessor{chargeErr: fmt.Errorf("%w: card declined", domain.ErrGatewayDeclined)}
	router := newTestRouter(proc)
	methodID := createMethod(t, router)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/payments", gin.H{
		"payment_method_id": methodID,
		"amount":            "10.00",
		"currency":          "USD",
	})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d body %s", w.Code, w.Body.String())
	}
	if resp["code"] != "GATEWAY_ERROR" {
		t.Errorf("expected GATEWAY_ERROR code, got %v", resp["code"])
	}
}

func TestCreatePayment_RejectsBadAmount(t *testing.T) {
	router := newTestRouter(&scriptedProcessor{})
	methodID := createMethod(t, router)

	for _, amount := range []string{"-1.00", "0", "ten"} {
		w, _ := doJSON(t, router, http.MethodPost, "/api/v1/payments", gin.H{
			"payment_method_id": methodID,
			"amount":            amount,
			"currency":          "USD",
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("amount %q should be rejected, got %d", amount, w.Code)
		}
	}
}

func TestPaymentNotFound(t *testing.T) {
	router := newTestRouter(&scriptedProcessor{})
	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/payments/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCheckoutConfig_ExposesPublicKeyOnly(t *testing.T) {
	router := newTestRouter(&scriptedProcessor{})
	w, resp := doJSON(t, router, http.MethodGet, "/checkout/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["public_key"] != "pkapi_cert_abc" {
		t.Errorf("expected public key, got %v", resp["public_key"])
	}
	fields := resp["fields"].(map[string]interface{})
	if fields["card_number"] != "heartlandCardNumber" {
		t.Errorf("expected frame targets, got %v", fields)
	}
	if _, leaked := resp["secret_key"]; leaked {
		t.Error("secret key must never appear in checkout config")
	}
}

func TestDeletePaymentMethodOverHTTP(t *testing.T) {
	router := newTestRouter(&scriptedProcessor{})
	methodID := createMethod(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/payment-methods/"+methodID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}

	w2, _ := doJSON(t, router, http.MethodDelete, "/api/v1/payment-methods/"+methodID, nil)
	if w2.Code != http.StatusNotFound {
		t.Errorf("double delete should be 404, got %d", w2.Code)
	}
}
