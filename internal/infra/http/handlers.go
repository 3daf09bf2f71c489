package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"keepsafe/internal/domain"
	"keepsafe/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createVaultRequest struct {
	Name          string `json:"name"`
	KeyType       string `json:"key_type"`
	VaultType     string `json:"vault_type"`
	IsBroadcast   bool   `json:"is_broadcast"`
	IsSystemVault bool   `json:"is_system_vault"`
}

type vaultResponse struct {
	ID             string `json:"id"`
	OwnerID        string `json:"owner_id"`
	Name           string `json:"name"`
	KeyType        string `json:"key_type"`
	VaultType      string `json:"vault_type"`
	Status         string `json:"status"`
	IsSystemVault  bool   `json:"is_system_vault"`
	IsBroadcast    bool   `json:"is_broadcast"`
	CreatedAt      string `json:"created_at"`
	LastAccessedAt string `json:"last_accessed_at,omitempty"`
}

type openSessionRequest struct {
	Reason     string           `json:"reason,omitempty"`
	DeviceInfo string           `json:"device_info,omitempty"`
	Location   *domain.Location `json:"location,omitempty"`
}

type sessionResponse struct {
	ID          string `json:"id"`
	VaultID     string `json:"vault_id"`
	UserID      string `json:"user_id"`
	StartedAt   string `json:"started_at"`
	ExpiresAt   string `json:"expires_at"`
	WasExtended bool   `json:"was_extended"`
}

type openSessionResponse struct {
	State   string            `json:"state"`
	Session *sessionResponse  `json:"session,omitempty"`
	Request *approvalResponse `json:"request,omitempty"`
}

type approvalResponse struct {
	ID             string  `json:"id"`
	VaultID        string  `json:"vault_id"`
	RequesterID    string  `json:"requester_id"`
	RequestedAt    string  `json:"requested_at"`
	Status         string  `json:"status"`
	Reason         string  `json:"reason,omitempty"`
	RiskScore      float64 `json:"risk_score"`
	Reasoning      string  `json:"reasoning,omitempty"`
	DecisionMethod string  `json:"decision_method,omitempty"`
	ApproverID     string  `json:"approver_id,omitempty"`
}

type inviteNomineeRequest struct {
	Name                string   `json:"name"`
	Contact             string   `json:"contact"`
	IsSubsetAccess      bool     `json:"is_subset_access"`
	SelectedDocumentIDs []string `json:"selected_document_ids,omitempty"`
	AccessWindowSecs    int64    `json:"access_window_secs,omitempty"`
}

type nomineeResponse struct {
	ID               string   `json:"id"`
	VaultID          string   `json:"vault_id"`
	UserID           string   `json:"user_id,omitempty"`
	Name             string   `json:"name"`
	Contact          string   `json:"contact"`
	Status           string   `json:"status"`
	IsSubsetAccess   bool     `json:"is_subset_access"`
	SelectedDocIDs   []string `json:"selected_document_ids,omitempty"`
	SessionExpiresAt string   `json:"session_expires_at,omitempty"`
	InvitedAt        string   `json:"invited_at"`
	InviteToken      string   `json:"invite_token,omitempty"`
}

type acceptInvitationRequest struct {
	Token string `json:"token"`
}

type emergencyRequestBody struct {
	Reason  string `json:"reason"`
	Urgency string `json:"urgency"`
}

type emergencyResponse struct {
	ID          string `json:"id"`
	VaultID     string `json:"vault_id"`
	RequesterID string `json:"requester_id"`
	Reason      string `json:"reason"`
	Urgency     string `json:"urgency"`
	Status      string `json:"status"`
	ApproverID  string `json:"approver_id,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	CreatedAt   string `json:"created_at"`
	PassCode    string `json:"pass_code,omitempty"`
}

type verifyPassCodeRequest struct {
	PassCode string `json:"pass_code"`
}

type documentResponse struct {
	ID        string `json:"id"`
	VaultID   string `json:"vault_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type accessLogResponse struct {
	Seq        int64            `json:"seq"`
	Timestamp  string           `json:"timestamp"`
	AccessType string           `json:"access_type"`
	UserID     string           `json:"user_id"`
	UserName   string           `json:"user_name,omitempty"`
	DocumentID string           `json:"document_id,omitempty"`
	DeviceInfo string           `json:"device_info,omitempty"`
	Location   *domain.Location `json:"location,omitempty"`
	Detail     map[string]any   `json:"detail,omitempty"`
	PrevHash   string           `json:"prev_hash"`
	EntryHash  string           `json:"entry_hash"`
}

type redactionRequest struct {
	AreaCount  int  `json:"area_count"`
	MatchCount int  `json:"match_count"`
	Verified   bool `json:"verified"`
}

// --- vaults ---

func (s *Server) handleCreateVault(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	var req createVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	vault, err := s.vaults.Create(c.Request.Context(), usecase.CreateVaultParams{
		OwnerID:       caller.UserID,
		Name:          req.Name,
		KeyType:       domain.KeyType(req.KeyType),
		VaultType:     domain.VaultType(req.VaultType),
		IsBroadcast:   req.IsBroadcast,
		IsSystemVault: req.IsSystemVault,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toVaultResponse(*vault))
}

func (s *Server) handleGetVault(c *gin.Context) {
	if _, ok := s.requireCaller(c); !ok {
		return
	}
	vault, err := s.vaults.Get(c.Request.Context(), c.Param("vault_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVaultResponse(*vault))
}

// handleVaultKeyRef hands the opaque key handle to the storage collaborator.
// The ref is useless without the key store; raw key bytes never leave it.
func (s *Server) handleVaultKeyRef(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	vaultID := c.Param("vault_id")
	if !s.requireOwnerOrAdmin(c, vaultID, caller) {
		return
	}
	ref, err := s.vaults.KeyRef(c.Request.Context(), vaultID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key_ref": string(ref)})
}

func (s *Server) handleAddDocument(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	doc, err := s.vaults.AddDocument(c.Request.Context(), c.Param("vault_id"), req.Name, caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDocumentResponse(*doc))
}

// --- sessions ---

func (s *Server) handleOpenSession(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	var req openSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
			return
		}
	}
	result, err := s.sessions.Open(c.Request.Context(), usecase.OpenParams{
		VaultID:    c.Param("vault_id"),
		UserID:     caller.UserID,
		UserName:   caller.UserName,
		Reason:     req.Reason,
		DeviceInfo: req.DeviceInfo,
		Location:   req.Location,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	resp := openSessionResponse{State: string(result.State)}
	if result.Session != nil {
		sr := toSessionResponse(*result.Session)
		resp.Session = &sr
	}
	if result.Request != nil {
		ar := toApprovalResponse(*result.Request)
		resp.Request = &ar
	}
	if result.State == domain.OpenStateAwaitingApproval {
		c.JSON(http.StatusAccepted, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleCloseSession(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	if err := s.sessions.Close(c.Request.Context(), c.Param("vault_id"), caller.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHasActiveSession(c *gin.Context) {
	if _, ok := s.requireCaller(c); !ok {
		return
	}
	active, err := s.sessions.HasActiveSession(c.Request.Context(), c.Param("vault_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}

func (s *Server) handleExtendSession(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	sessionID := c.Param("session_id")
	existing, err := s.sessions.Sessions.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !caller.Admin && existing.UserID != caller.UserID {
		writeError(c, domain.ErrForbidden)
		return
	}
	session, err := s.sessions.Extend(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(*session))
}

// --- approvals ---

func (s *Server) handleListPendingApprovals(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	requests, err := s.approvals.Pending(c.Request.Context(), c.Param("vault_id"), caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]approvalResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toApprovalResponse(req))
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (s *Server) handleApproveRequest(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	req, err := s.approvals.Approve(c.Request.Context(), c.Param("request_id"), caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toApprovalResponse(*req))
}

func (s *Server) handleDenyRequest(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	req, err := s.approvals.Deny(c.Request.Context(), c.Param("request_id"), caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toApprovalResponse(*req))
}

// --- nominees ---

func (s *Server) handleInviteNominee(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	var req inviteNomineeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	nominee, token, err := s.delegation.Invite(c.Request.Context(), usecase.InviteParams{
		VaultID:             c.Param("vault_id"),
		CallerID:            caller.UserID,
		Name:                req.Name,
		Contact:             req.Contact,
		IsSubsetAccess:      req.IsSubsetAccess,
		SelectedDocumentIDs: req.SelectedDocumentIDs,
		AccessWindow:        time.Duration(req.AccessWindowSecs) * time.Second,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	resp := toNomineeResponse(*nominee)
	resp.InviteToken = token
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleAcceptInvitation(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	var req acceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "token is required")
		return
	}
	nominee, err := s.delegation.AcceptInvitation(c.Request.Context(), req.Token, caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNomineeResponse(*nominee))
}

func (s *Server) handleRevokeNominee(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	permanent := true
	if raw := c.Query("permanent"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_QUERY", "permanent must be a boolean")
			return
		}
		permanent = parsed
	}
	if err := s.delegation.Revoke(c.Request.Context(), c.Param("nominee_id"), caller.UserID, permanent); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleNomineeDocuments(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	nominee, err := s.delegation.Nominees.GetByID(c.Request.Context(), c.Param("nominee_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	// Visible to the accepted nominee themselves, the vault owner, or an admin.
	if nominee.UserID == "" || caller.UserID != nominee.UserID {
		if !s.requireOwnerOrAdmin(c, nominee.VaultID, caller) {
			return
		}
	}
	docs, err := s.delegation.VisibleDocuments(c.Request.Context(), c.Param("nominee_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

// --- emergency access ---

func (s *Server) handleRequestEmergency(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	var req emergencyRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	out, err := s.emergency.Request(c.Request.Context(), c.Param("vault_id"), caller.UserID, req.Reason, domain.Urgency(req.Urgency))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEmergencyResponse(*out))
}

func (s *Server) handleApproveEmergency(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	out, code, err := s.emergency.Approve(c.Request.Context(), c.Param("request_id"), caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := toEmergencyResponse(*out)
	resp.PassCode = code
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDenyEmergency(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	out, err := s.emergency.Deny(c.Request.Context(), c.Param("request_id"), caller.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEmergencyResponse(*out))
}

func (s *Server) handleRevokeEmergency(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	if err := s.emergency.Revoke(c.Request.Context(), c.Param("request_id"), caller.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleVerifyPassCode rate-limits attempts per vault and client, then defers
// to the uniform-failure verification. A 401 here never says why.
func (s *Server) handleVerifyPassCode(c *gin.Context) {
	vaultID := c.Param("vault_id")
	var req verifyPassCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PassCode == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "pass_code is required")
		return
	}

	if s.rateLimiter != nil && s.cfg.PassCodeAttempts > 0 {
		key := "passcode:" + vaultID + ":" + c.ClientIP()
		decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.cfg.PassCodeAttempts, s.cfg.PassCodeAttemptWindow)
		if err == nil && !decision.Allowed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many attempts")
			return
		}
	}

	granted, err := s.emergency.VerifyPassCode(c.Request.Context(), req.PassCode, vaultID)
	if err != nil {
		writeError(c, err)
		return
	}
	if granted == nil {
		writeErrorCode(c, http.StatusUnauthorized, "VERIFICATION_FAILED", "verification failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"request_id": granted.ID,
		"vault_id":   granted.VaultID,
		"expires_at": granted.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// --- access logs ---

func (s *Server) handleListLogs(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	vaultID := c.Param("vault_id")
	if !s.requireOwnerOrAdmin(c, vaultID, caller) {
		return
	}
	entries, err := s.logs.ListByVault(c.Request.Context(), vaultID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]accessLogResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toAccessLogResponse(entry))
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

func (s *Server) handleVerifyLogs(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	vaultID := c.Param("vault_id")
	if !s.requireOwnerOrAdmin(c, vaultID, caller) {
		return
	}
	if err := usecase.VerifyVaultChain(c.Request.Context(), s.logs, vaultID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"verified": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

func (s *Server) handleRecordRedaction(c *gin.Context) {
	caller, ok := s.requireCaller(c)
	if !ok {
		return
	}
	var req redactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	documentID := c.Param("document_id")
	doc, err := s.vaults.Documents.GetByID(c.Request.Context(), documentID)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.audit.RecordRedaction(c.Request.Context(), doc.VaultID, documentID, caller.UserID, req.AreaCount, req.MatchCount, req.Verified); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// --- helpers ---

func (s *Server) requireOwnerOrAdmin(c *gin.Context, vaultID string, caller identity) bool {
	if caller.Admin {
		return true
	}
	vault, err := s.vaults.Get(c.Request.Context(), vaultID)
	if err != nil {
		writeError(c, err)
		return false
	}
	if vault.OwnerID != caller.UserID {
		writeError(c, domain.ErrForbidden)
		return false
	}
	return true
}

func toVaultResponse(vault domain.Vault) vaultResponse {
	resp := vaultResponse{
		ID:            vault.ID,
		OwnerID:       vault.OwnerID,
		Name:          vault.Name,
		KeyType:       string(vault.KeyType),
		VaultType:     string(vault.VaultType),
		Status:        string(vault.Status),
		IsSystemVault: vault.IsSystemVault,
		IsBroadcast:   vault.IsBroadcast,
		CreatedAt:     vault.CreatedAt.UTC().Format(time.RFC3339),
	}
	if vault.LastAccessedAt != nil {
		resp.LastAccessedAt = vault.LastAccessedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toSessionResponse(session domain.Session) sessionResponse {
	return sessionResponse{
		ID:          session.ID,
		VaultID:     session.VaultID,
		UserID:      session.UserID,
		StartedAt:   session.StartedAt.UTC().Format(time.RFC3339),
		ExpiresAt:   session.ExpiresAt.UTC().Format(time.RFC3339),
		WasExtended: session.WasExtended,
	}
}

func toApprovalResponse(req domain.DualKeyRequest) approvalResponse {
	return approvalResponse{
		ID:             req.ID,
		VaultID:        req.VaultID,
		RequesterID:    req.RequesterID,
		RequestedAt:    req.RequestedAt.UTC().Format(time.RFC3339),
		Status:         string(req.Status),
		Reason:         req.Reason,
		RiskScore:      req.RiskScore,
		Reasoning:      req.Reasoning,
		DecisionMethod: string(req.DecisionMethod),
		ApproverID:     req.ApproverID,
	}
}

func toNomineeResponse(nominee domain.Nominee) nomineeResponse {
	resp := nomineeResponse{
		ID:             nominee.ID,
		VaultID:        nominee.VaultID,
		UserID:         nominee.UserID,
		Name:           nominee.Name,
		Contact:        nominee.Contact,
		Status:         string(nominee.Status),
		IsSubsetAccess: nominee.IsSubsetAccess,
		SelectedDocIDs: nominee.SelectedDocumentIDs,
		InvitedAt:      nominee.InvitedAt.UTC().Format(time.RFC3339),
	}
	if nominee.SessionExpiresAt != nil {
		resp.SessionExpiresAt = nominee.SessionExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toEmergencyResponse(req domain.EmergencyAccessRequest) emergencyResponse {
	resp := emergencyResponse{
		ID:          req.ID,
		VaultID:     req.VaultID,
		RequesterID: req.RequesterID,
		Reason:      req.Reason,
		Urgency:     string(req.Urgency),
		Status:      string(req.Status),
		ApproverID:  req.ApproverID,
		CreatedAt:   req.CreatedAt.UTC().Format(time.RFC3339),
	}
	if req.ExpiresAt != nil {
		resp.ExpiresAt = req.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toDocumentResponse(doc domain.Document) documentResponse {
	return documentResponse{
		ID:        doc.ID,
		VaultID:   doc.VaultID,
		Name:      doc.Name,
		CreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toAccessLogResponse(entry domain.AccessLogEntry) accessLogResponse {
	return accessLogResponse{
		Seq:        entry.Seq,
		Timestamp:  entry.Timestamp.UTC().Format(time.RFC3339Nano),
		AccessType: string(entry.AccessType),
		UserID:     entry.UserID,
		UserName:   entry.UserName,
		DocumentID: entry.DocumentID,
		DeviceInfo: entry.DeviceInfo,
		Location:   entry.Location,
		Detail:     entry.Detail,
		PrevHash:   entry.PrevHash,
		EntryHash:  entry.EntryHash,
	}
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrAlreadyExtended):
		status, code = http.StatusConflict, "ALREADY_EXTENDED"
	case errors.Is(err, domain.ErrAlreadyProcessed):
		status, code = http.StatusConflict, "ALREADY_PROCESSED"
	case errors.Is(err, domain.ErrSessionExpired):
		status, code = http.StatusForbidden, "SESSION_EXPIRED"
	case errors.Is(err, domain.ErrVaultLocked):
		status, code = http.StatusConflict, "VAULT_LOCKED"
	case errors.Is(err, domain.ErrMalformedBlob):
		status, code = http.StatusBadRequest, "MALFORMED_BLOB"
	case errors.Is(err, domain.ErrAuthenticationFailure):
		status, code = http.StatusBadRequest, "AUTHENTICATION_FAILURE"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
