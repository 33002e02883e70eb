package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/logging"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
	"github.com/dmitrijs2005/aliasvault/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type VaultApi struct {
	vaults   services.VaultStore
	auth     services.Authenticator
	archive  services.ArchiveLinker
	validate *validator.Validate
	logger   logging.Logger
}

// NewVaultApi builds the vault handlers. archive may be nil when archiving
// is disabled.
func NewVaultApi(vaults services.VaultStore, auth services.Authenticator, archive services.ArchiveLinker, logger logging.Logger) *VaultApi {
	return &VaultApi{vaults: vaults, auth: auth, archive: archive, validate: validator.New(), logger: logger}
}

func toApiVault(v *models.Vault) api.Vault {
	return api.Vault{
		Blob:                  v.Blob,
		Version:               v.Version,
		CurrentRevisionNumber: v.RevisionNumber,
		CredentialsCount:      v.CredentialsCount,
		EmailAddressCount:     v.EmailAddressCount,
		Client:                v.Client,
		Salt:                  v.Salt,
		Verifier:              v.Verifier,
		EncryptionType:        v.EncryptionType,
		EncryptionSettings:    v.EncryptionSettings,
		CreatedAt:             v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toUpload(v api.Vault, client string) services.VaultUpload {
	if client == "" {
		client = v.Client
	}
	return services.VaultUpload{
		Blob:                  v.Blob,
		Version:               v.Version,
		CurrentRevisionNumber: v.CurrentRevisionNumber,
		CredentialsCount:      v.CredentialsCount,
		EmailAddressCount:     v.EmailAddressCount,
		Client:                client,
	}
}

func (a *VaultApi) Get(c *gin.Context) {
	v, err := a.vaults.GetLatest(c.Request.Context(), userID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.VaultGetResponse{Status: api.VaultStatusOk, Vault: toApiVault(v)})
}

// Merge returns every revision newer than currentRevisionNumber so the
// client can merge them into its local changes.
func (a *VaultApi) Merge(c *gin.Context) {
	var req api.VaultMergeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid currentRevisionNumber")
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid currentRevisionNumber")
		return
	}
	list, err := a.vaults.ListSince(c.Request.Context(), userID(c), req.CurrentRevisionNumber)
	if err != nil {
		serviceError(c, err)
		return
	}
	resp := api.VaultMergeResponse{Vaults: make([]api.Vault, 0, len(list))}
	for _, v := range list {
		resp.Vaults = append(resp.Vaults, toApiVault(v))
	}
	c.JSON(http.StatusOK, resp)
}

func (a *VaultApi) Update(c *gin.Context) {
	var req api.Vault
	if !bindJSON(c, a.validate, &req) {
		return
	}
	rev, err := a.vaults.AppendRevision(c.Request.Context(), userID(c), toUpload(req, clientInfo(c).Client))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.VaultUpdateResponse{Status: api.VaultStatusOk, NewRevisionNumber: rev})
}

func (a *VaultApi) ChangePassword(c *gin.Context) {
	var req api.PasswordChangeRequest
	if !bindJSON(c, a.validate, &req) {
		return
	}
	client := clientInfo(c)
	rev, err := a.auth.PasswordChange(c.Request.Context(), userID(c), services.PasswordChangeRequest{
		CurrentClientPublicEphemeral: req.CurrentClientPublicEphemeral,
		CurrentClientSessionProof:    req.CurrentClientSessionProof,
		NewSalt:                      req.NewPasswordSalt,
		NewVerifier:                  req.NewPasswordVerifier,
		Vault:                        toUpload(req.Vault, client.Client),
	}, client)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.VaultUpdateResponse{Status: api.VaultStatusOk, NewRevisionNumber: rev})
}

// ArchiveLink hands out a short-lived download link for a pruned revision.
func (a *VaultApi) ArchiveLink(c *gin.Context) {
	if a.archive == nil {
		ApiErrorf(c, http.StatusNotFound, "archive is disabled")
		return
	}
	rev, err := strconv.ParseInt(c.Param("revision"), 10, 64)
	if err != nil || rev < 0 {
		ApiErrorf(c, http.StatusBadRequest, "invalid revision")
		return
	}
	url, err := a.archive.PresignedURL(c.Request.Context(), userID(c), rev)
	if err != nil {
		a.logger.Error(c.Request.Context(), "presign failed", "error", err)
		ApiErrorf(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, api.ArchiveLinkResponse{Url: url})
}
