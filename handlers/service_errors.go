package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/orders-backend/services"
	"github.com/upb/orders-backend/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("unhandled error type", zap.Error(err))
		logWriteError(logger, utils.WriteInternalServerError(w, "An unexpected error occurred", ""))
		return
	}

	message := domainErr.Message
	details := domainErr.Details

	switch domainErr.Type {
	case services.ErrorTypeNotFound:
		logWriteError(logger, utils.WriteNotFound(w, message))

	case services.ErrorTypeValidation:
		logWriteError(logger, utils.WriteBadRequest(w, message, details))

	case services.ErrorTypeUnauthorized:
		// The cause may name the failing verifier; it only goes to the log
		logger.Debug("request unauthorized", zap.Error(err))
		logWriteError(logger, utils.WriteUnauthorized(w, message))

	case services.ErrorTypeConflict:
		logWriteError(logger, utils.WriteConflict(w, message, details))

	case services.ErrorTypeConfiguration:
		logger.Error("server misconfigured", zap.Error(err))
		logWriteError(logger, utils.WriteInternalServerError(w, message, "configuration_error"))

	case services.ErrorTypePersistence:
		logger.Error("persistence failure", zap.Error(err))
		cause := "persistence_error"
		if domainErr.Err != nil {
			cause = domainErr.Err.Error()
		}
		logWriteError(logger, utils.WriteInternalServerError(w, message, cause))

	default:
		logger.Error("internal server error",
			zap.Error(err),
			zap.String("error_type", string(domainErr.Type)))
		logWriteError(logger, utils.WriteInternalServerError(w, "An internal error occurred", ""))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		logWriteError(logger, utils.WriteBadRequest(w, err.Error(), details))
		return
	}

	logWriteError(logger, utils.WriteBadRequest(w, err.Error(), nil))
}

func logWriteError(logger *zap.Logger, err error) {
	if err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
