package errors

import (
	"go.uber.org/zap"
)

// LogError logs err with its code and any attached details.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	allFields := make([]zap.Field, 0, len(fields)+4)
	allFields = append(allFields, zap.Error(err))

	var appErr *AppError
	if As(err, &appErr) {
		allFields = append(allFields, zap.String("error_code", appErr.Code()))
		if len(appErr.Details()) > 0 {
			allFields = append(allFields, zap.Any("error_details", appErr.Details()))
		}
	}
	if IsPermanent(err) {
		allFields = append(allFields, zap.Bool("permanent", true))
	}

	allFields = append(allFields, fields...)

	logger.Error(msg, allFields...)
}
