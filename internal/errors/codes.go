package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// The mini-app maps these codes to its own copy.

const (
	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden     = "AUTHZ_FORBIDDEN"      // caller is not an admin
	AuthzTokenInvalid  = "AUTHZ_TOKEN_INVALID"  // bad session token or initData signature
	AuthzTokenExpired  = "AUTHZ_TOKEN_EXPIRED"  // session or initData too old
	AuthzTokenMissing  = "AUTHZ_TOKEN_MISSING"  // neither header supplied
	AuthzNotConfigured = "AUTHZ_NOT_CONFIGURED" // bot token or admin list missing

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput   = "VALIDATION_INVALID_INPUT"   // malformed body
	ValidationInvalidID      = "VALIDATION_INVALID_ID"      // bad path id
	ValidationRequired       = "VALIDATION_REQUIRED"        // required field missing
	ValidationInvalidGroup   = "VALIDATION_INVALID_GROUP"   // option group rejected
	ValidationInvalidVariant = "VALIDATION_INVALID_VARIANT" // variant rejected
	ValidationInvalidOrder   = "VALIDATION_INVALID_ORDER"   // order payload rejected
	ValidationTransition     = "VALIDATION_TRANSITION"      // illegal status change

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Catalog (CATALOG_) ====================
	ProductNotFound       = "CATALOG_PRODUCT_NOT_FOUND"
	VariantNotFound       = "CATALOG_VARIANT_NOT_FOUND"
	GenerationUnsupported = "CATALOG_GENERATION_UNSUPPORTED" // checkbox or text group in auto-generation

	// ==================== Orders (ORDER_) ====================
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderInsufficientStock = "ORDER_INSUFFICIENT_STOCK"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalStorage       = "INTERNAL_STORAGE_UNAVAILABLE" // store down, timed out or retry exhausted
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
