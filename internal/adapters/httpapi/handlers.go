package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"paperdesk/internal/domain"
	"paperdesk/internal/execution"
	"paperdesk/internal/ports"
	"paperdesk/internal/risk"

	"github.com/gin-gonic/gin"
)

const (
	// AccountHeader selects the paper account a request acts on.
	AccountHeader = "X-Account-ID"

	accountKey = "accountID"

	defaultOrderLimit = 100
	defaultRunLimit   = 50
	maxListLimit      = 500
)

type handlers struct {
	store   ports.Store
	orders  OrderService
	gateway ExecutionService
	logger  ports.Logger
}

func (h *handlers) register(g *gin.RouterGroup) {
	g.GET("/strategies", h.listStrategies)
	g.POST("/strategies", h.createStrategy)
	g.GET("/orders", h.listOrders)
	g.POST("/orders/paper", h.placePaperOrder)
	g.POST("/orders/execute", h.executeOrder)
	g.POST("/orders/:id/status", h.updateOrderStatus)
	g.GET("/positions", h.listPositions)
	g.GET("/risk-rules", h.listRiskRules)
	g.POST("/risk-rules", h.createRiskRule)
	g.POST("/risk-rules/:id/enabled", h.setRiskRuleEnabled)
	g.GET("/agent-runs", h.listAgentRuns)
	g.GET("/execution/config", h.getExecutionConfig)
	g.POST("/execution/config", h.setExecutionConfig)
}

// accountFromHeader resolves the account id, falling back to def.
func accountFromHeader(def int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := def
		if raw := strings.TrimSpace(c.GetHeader(AccountHeader)); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n <= 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + AccountHeader + " header"})
				return
			}
			id = n
		}
		c.Set(accountKey, id)
		c.Next()
	}
}

func accountID(c *gin.Context) int64 {
	return c.GetInt64(accountKey)
}

// queryLimit reads ?limit, applying def when absent or non-positive and
// capping at maxListLimit.
func queryLimit(c *gin.Context, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if n <= 0 {
		n = def
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func (h *handlers) internalError(c *gin.Context, err error, msg string) {
	h.logger.Error(c.Request.Context(), err, msg, map[string]interface{}{"path": c.Request.URL.Path})
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
}

type createStrategyRequest struct {
	Name      string                 `json:"name"`
	Market    string                 `json:"market"`
	Symbol    string                 `json:"symbol"`
	Timeframe string                 `json:"timeframe"`
	Status    string                 `json:"status"`
	Config    map[string]interface{} `json:"config"`
}

func (h *handlers) listStrategies(c *gin.Context) {
	rows, err := h.store.ListStrategies(c.Request.Context(), accountID(c), strings.TrimSpace(c.Query("status")))
	if err != nil {
		h.internalError(c, err, "list strategies failed")
		return
	}
	c.JSON(http.StatusOK, orEmpty(rows))
}

func (h *handlers) createStrategy(c *gin.Context) {
	var req createStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Market) == "" || strings.TrimSpace(req.Symbol) == "" {
		badRequest(c, "name, market and symbol are required")
		return
	}
	cfg := []byte("{}")
	if req.Config != nil {
		b, err := json.Marshal(req.Config)
		if err != nil {
			badRequest(c, "invalid config: "+err.Error())
			return
		}
		cfg = b
	}

	id, err := h.store.CreateStrategy(c.Request.Context(), &domain.Strategy{
		AccountID:  accountID(c),
		Name:       strings.TrimSpace(req.Name),
		Market:     strings.TrimSpace(req.Market),
		Symbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Timeframe:  strings.TrimSpace(req.Timeframe),
		ConfigJSON: string(cfg),
		Status:     strings.ToUpper(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		h.internalError(c, err, "create strategy failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "strategy_id": id})
}

func (h *handlers) listOrders(c *gin.Context) {
	limit, ok := queryLimit(c, defaultOrderLimit)
	if !ok {
		badRequest(c, "limit must be an integer")
		return
	}
	rows, err := h.store.ListOrders(c.Request.Context(), accountID(c), domain.OrderFilter{
		Status: domain.ParseOrderStatus(c.Query("status")),
		Limit:  limit,
	})
	if err != nil {
		h.internalError(c, err, "list orders failed")
		return
	}
	c.JSON(http.StatusOK, orEmpty(rows))
}

func (h *handlers) placePaperOrder(c *gin.Context) {
	var req domain.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid order: "+err.Error())
		return
	}
	res, err := h.orders.SubmitPaper(c.Request.Context(), accountID(c), req)
	h.writeResult(c, res, err)
}

func (h *handlers) executeOrder(c *gin.Context) {
	var req domain.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid order: "+err.Error())
		return
	}
	res, err := h.gateway.ExecuteOrder(c.Request.Context(), accountID(c), req)
	h.writeResult(c, res, err)
}

// writeResult sends business outcomes as 200 and store failures as 500.
func (h *handlers) writeResult(c *gin.Context, res domain.ExecutionResult, err error) {
	if err != nil {
		h.logger.Error(c.Request.Context(), err, "order execution failed", map[string]interface{}{"runID": res.RunID})
		res.Success = false
		res.Error = err.Error()
		c.JSON(http.StatusInternalServerError, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

type updateOrderStatusRequest struct {
	Status        string  `json:"status"`
	BrokerOrderID *string `json:"broker_order_id"`
	RejectReason  *string `json:"reject_reason"`
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		badRequest(c, "invalid order id")
		return
	}
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	status := domain.ParseOrderStatus(req.Status)
	if !status.Valid() {
		badRequest(c, "unknown order status "+req.Status)
		return
	}

	order, err := h.orders.OverrideStatus(c.Request.Context(), id, status, req.BrokerOrderID, req.RejectReason)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "order not found"})
		return
	case errors.Is(err, execution.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		return
	case err != nil:
		h.internalError(c, err, "order status override failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (h *handlers) listPositions(c *gin.Context) {
	rows, err := h.store.ListOpenPositions(c.Request.Context(), accountID(c))
	if err != nil {
		h.internalError(c, err, "list positions failed")
		return
	}
	c.JSON(http.StatusOK, orEmpty(rows))
}

type createRiskRuleRequest struct {
	Name     string                 `json:"name"`
	RuleType string                 `json:"rule_type"`
	Value    map[string]interface{} `json:"value"`
	Enabled  *bool                  `json:"enabled"`
}

func (h *handlers) listRiskRules(c *gin.Context) {
	enabledOnly := true
	if raw := strings.TrimSpace(c.Query("enabled_only")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "enabled_only must be a boolean")
			return
		}
		enabledOnly = v
	}
	rows, err := h.store.ListRiskRules(c.Request.Context(), accountID(c), enabledOnly)
	if err != nil {
		h.internalError(c, err, "list risk rules failed")
		return
	}
	c.JSON(http.StatusOK, orEmpty(rows))
}

func (h *handlers) createRiskRule(c *gin.Context) {
	var req createRiskRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(c, "name is required")
		return
	}
	ruleType := domain.RuleType(strings.ToLower(strings.TrimSpace(req.RuleType)))
	payload := []byte("{}")
	if req.Value != nil {
		b, err := json.Marshal(req.Value)
		if err != nil {
			badRequest(c, "invalid value: "+err.Error())
			return
		}
		payload = b
	}
	if err := risk.Validate(ruleType, string(payload)); err != nil {
		badRequest(c, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	id, err := h.store.CreateRiskRule(c.Request.Context(), &domain.RiskRule{
		AccountID: accountID(c),
		Name:      name,
		RuleType:  ruleType,
		Config:    string(payload),
		Enabled:   enabled,
	})
	if err != nil {
		h.internalError(c, err, "create risk rule failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "risk_rule_id": id})
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *handlers) setRiskRuleEnabled(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		badRequest(c, "invalid risk rule id")
		return
	}
	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Enabled == nil {
		badRequest(c, "enabled is required")
		return
	}

	err := h.store.SetRiskRuleEnabled(c.Request.Context(), accountID(c), id, *req.Enabled)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "risk rule not found"})
		return
	case err != nil:
		h.internalError(c, err, "toggle risk rule failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "risk_rule_id": id, "enabled": *req.Enabled})
}

func (h *handlers) listAgentRuns(c *gin.Context) {
	limit, ok := queryLimit(c, defaultRunLimit)
	if !ok {
		badRequest(c, "limit must be an integer")
		return
	}
	rows, err := h.store.ListAgentRuns(c.Request.Context(), accountID(c), limit)
	if err != nil {
		h.internalError(c, err, "list agent runs failed")
		return
	}
	c.JSON(http.StatusOK, orEmpty(rows))
}

func (h *handlers) getExecutionConfig(c *gin.Context) {
	cfg, err := h.gateway.GetConfig(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "read execution config failed")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type setExecutionConfigRequest struct {
	Mode       *string `json:"mode"`
	KillSwitch *bool   `json:"kill_switch"`
}

func (h *handlers) setExecutionConfig(c *gin.Context) {
	var req setExecutionConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	cfg, err := h.gateway.SetConfig(c.Request.Context(), execution.ConfigUpdate{Mode: req.Mode, KillSwitch: req.KillSwitch})
	switch {
	case errors.Is(err, execution.ErrInvalidMode):
		badRequest(c, err.Error())
		return
	case err != nil:
		h.internalError(c, err, "update execution config failed")
		return
	}
	h.logger.Info(c.Request.Context(), "Execution config updated", map[string]interface{}{"mode": cfg.Mode, "killSwitch": cfg.KillSwitch})
	c.JSON(http.StatusOK, gin.H{"success": true, "mode": cfg.Mode, "kill_switch": cfg.KillSwitch})
}
