package constants

// Standard Response Field Keys
const (
	ResponseFieldSuccess = "success"
	ResponseFieldCount   = "count"
	ResponseFieldData    = "data"
	ResponseFieldError   = "error"
	ResponseFieldDetails = "details"
	ResponseFieldToken   = "token"
)

// BuildDataResponse wraps a single payload.
func BuildDataResponse(data any) map[string]any {
	return map[string]any{
		ResponseFieldSuccess: true,
		ResponseFieldData:    data,
	}
}

// BuildListResponse wraps an unpaginated collection.
func BuildListResponse(count int, data any) map[string]any {
	return map[string]any{
		ResponseFieldSuccess: true,
		ResponseFieldCount:   count,
		ResponseFieldData:    data,
	}
}

func BuildTokenResponse(token string) map[string]any {
	return map[string]any{
		ResponseFieldSuccess: true,
		ResponseFieldToken:   token,
	}
}

func BuildErrorResponse(message string, details any) map[string]any {
	response := map[string]any{
		ResponseFieldSuccess: false,
		ResponseFieldError:   message,
	}

	if details != nil {
		response[ResponseFieldDetails] = details
	}

	return response
}
