package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden             ErrCode = "FORBIDDEN"
	ErrParticipantAccessOnly ErrCode = "PARTICIPANT_ACCESS_ONLY"
	ErrAdminAccessOnly       ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Access Gate ───────────────────────────────────────────────────
	ErrInvalidCode     ErrCode = "INVALID_CODE"
	ErrCodeAlreadyUsed ErrCode = "CODE_ALREADY_USED"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrInsufficientQuestions ErrCode = "INSUFFICIENT_QUESTION_BANK"
	ErrIncompleteAnswers     ErrCode = "INCOMPLETE_ANSWERS"
	ErrSessionCompleted      ErrCode = "SESSION_COMPLETED"
	ErrSessionExpired        ErrCode = "SESSION_EXPIRED"
	ErrSessionFailed         ErrCode = "SESSION_FAILED"
	ErrQuestionIndex         ErrCode = "QUESTION_INDEX_OUT_OF_RANGE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrPersistence ErrCode = "PERSISTENCE_ERROR"
	ErrInternal    ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email atau password salah!"
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrParticipantAccessOnly:
		return "Sumber daya ini terbatas untuk peserta tes."
	case ErrAdminAccessOnly:
		return "Sumber daya ini terbatas untuk administrator."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."

	// ─── Access Gate ───────────────────────────────────────────────────
	case ErrInvalidCode:
		return "Kode undangan tidak valid!"
	case ErrCodeAlreadyUsed:
		return "Kode undangan sudah digunakan!"

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrInsufficientQuestions:
		return "Tidak ada cukup soal di database."
	case ErrIncompleteAnswers:
		return "Masih ada soal yang belum dijawab. Harap jawab semua soal sebelum submit."
	case ErrSessionCompleted:
		return "Sesi tes sudah selesai."
	case ErrSessionExpired:
		return "Waktu tes telah berakhir."
	case ErrSessionFailed:
		return "Sesi tes gagal karena hasil tidak tersimpan. Silakan hubungi admin."
	case ErrQuestionIndex:
		return "Nomor soal di luar jangkauan."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrPersistence:
		return "Gagal menyimpan hasil tes. Silakan hubungi admin."
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
