package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// BorrowBook lends one copy of a book to a borrower.
func (api *APIHandler) BorrowBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	request := BorrowRequest{}
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	err := DecodeBorrowRequestBody(r, &request)
	if err != nil {
		api.logger.Error("failed to borrow book", zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "failed to borrow the book", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	err = ValidateBorrowRequestBody(&request, api.config.Circulation.MaxLoanDays)
	if err != nil {
		api.logger.Error("failed to borrow book", zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "failed to borrow the book", err.Error())
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	if ok := api.idsHandler.IsValid(request.BookID, BookIDPrefix); !ok {
		api.logger.Error("book id provided is not valid", zap.String("book.id", request.BookID), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "book id provided is not valid", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	loan, err := api.circulationService.Borrow(r.Context(), request)
	if err == ErrBookNotFound {
		api.logger.Error("book does not exist", zap.String("book.id", request.BookID), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusNotFound, "book does not exist", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err == ErrBookUnavailable {
		api.logger.Info("no copies available", zap.String("book.id", request.BookID), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusNotFound, "no copies available for this book", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err != nil {
		api.logger.Error("failed to borrow book", zap.String("book.id", request.BookID), zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to borrow the book", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	api.logger.Info("success to borrow book", zap.String("book.id", request.BookID),
		zap.String("loan.id", loan.ID), zap.String("request.id", requestID))
	resp := GenericResponse(requestID, http.StatusCreated, "Book borrowed successfully.", nil, loan)
	if err = WriteResponse(w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// ReturnBook closes a loan. Returning an already closed loan succeeds
// without touching the copies counter.
func (api *APIHandler) ReturnBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id := ps.ByName("id")
	if ok := api.idsHandler.IsValid(id, LoanIDPrefix); !ok {
		api.logger.Error("loan id provided is not valid", zap.String("loan.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "loan id provided is not valid", EmptyData)
		if err := WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	loan, err := api.circulationService.Return(r.Context(), id)
	if err == ErrLoanNotFound {
		api.logger.Error("loan does not exist", zap.String("loan.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusNotFound, "loan does not exist", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err != nil {
		api.logger.Error("failed to return book", zap.String("loan.id", id), zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to return the book", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	api.logger.Info("success to return book", zap.String("loan.id", id), zap.String("request.id", requestID))
	resp := GenericResponse(requestID, http.StatusOK, "Book returned successfully.", nil, loan)
	if err = WriteResponse(w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetOneLoan serves the current state of a loan.
func (api *APIHandler) GetOneLoan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id := ps.ByName("id")
	if ok := api.idsHandler.IsValid(id, LoanIDPrefix); !ok {
		api.logger.Error("loan id provided is not valid", zap.String("loan.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "loan id provided is not valid", EmptyData)
		if err := WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	loan, err := api.circulationService.GetLoan(r.Context(), id)
	if err == ErrLoanNotFound {
		api.logger.Error("loan does not exist", zap.String("loan.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusNotFound, "loan does not exist", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err != nil {
		api.logger.Error("failed to get loan", zap.String("loan.id", id), zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to get the loan", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	api.logger.Info("success to get loan", zap.String("loan.id", id), zap.String("request.id", requestID))
	resp := GenericResponse(requestID, http.StatusOK, "Loan fetched successfully.", nil, loan)
	if err = WriteResponse(w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetBorrowerLoans serves the loans history of one borrower.
func (api *APIHandler) GetBorrowerLoans(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id := ps.ByName("id")
	loans, err := api.circulationService.History(r.Context(), id)
	if err != nil {
		api.logger.Error("failed to get borrower loans", zap.String("borrower.id", id), zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to get borrower loans", loans)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	api.logger.Info("success to get borrower loans", zap.String("borrower.id", id), zap.String("request.id", requestID))
	total := len(loans)
	resp := GenericResponse(requestID, http.StatusOK, "Borrower loans fetched successfully.", &total, loans)
	if err = WriteResponse(w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetArchivedLoans serves the offline loans archive for ops users.
func (api *APIHandler) GetArchivedLoans(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	loans, err := api.archive.GetAll(r.Context())
	if err != nil {
		api.logger.Error("failed to get archived loans", zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to get archived loans", loans)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	total := len(loans)
	resp := GenericResponse(requestID, http.StatusOK, "Archived loans fetched successfully.", &total, loans)
	if err = WriteResponse(w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetOneArchivedLoan serves the latest archived snapshot of one loan.
func (api *APIHandler) GetOneArchivedLoan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id := ps.ByName("id")
	loan, err := api.archive.GetOne(r.Context(), id)
	if err == ErrLoanNotFound {
		api.logger.Error("archived loan does not exist", zap.String("loan.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusNotFound, "archived loan does not exist", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err != nil {
		api.logger.Error("failed to get archived loan", zap.String("loan.id", id), zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to get archived loan", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	resp := GenericResponse(requestID, http.StatusOK, "Archived loan fetched successfully.", nil, loan)
	if err = WriteResponse(w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}
