package dictionary

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wordsQuery = "SELECT word, freq::text FROM dict_words ORDER BY id"

func TestSQLSource_Build(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"word", "freq"}).
		AddRow("中文", "10").
		AddRow("中文分词", "3")
	mock.ExpectQuery(regexp.QuoteMeta(wordsQuery)).WillReturnRows(rows).RowsWillBeClosed()

	src, err := NewSQLSource(db, "dict_words")
	require.NoError(t, err)
	assert.Equal(t, "sql:dict_words", src.Name())

	ft, err := Build(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 13, ft.Total())
	freq, ok := ft.Frequency("中文分")
	assert.True(t, ok)
	assert.Zero(t, freq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_BadRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"word", "freq"}).
		AddRow("中文", "10").
		AddRow("分词", nil)
	mock.ExpectQuery(regexp.QuoteMeta(wordsQuery)).WillReturnRows(rows).RowsWillBeClosed()

	src, err := NewSQLSource(db, "dict_words")
	require.NoError(t, err)

	_, err = Build(context.Background(), src)
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Line)
	assert.Equal(t, "sql:dict_words", fe.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(wordsQuery)).WillReturnError(errors.New("relation does not exist"))

	src, err := NewSQLSource(db, "dict_words")
	require.NoError(t, err)

	_, err = Build(context.Background(), src)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestSQLSource_RowError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"word", "freq"}).
		AddRow("中文", "10").
		AddRow("分词", "2").
		RowError(1, errors.New("connection reset"))
	mock.ExpectQuery(regexp.QuoteMeta(wordsQuery)).WillReturnRows(rows)

	src, err := NewSQLSource(db, "dict_words")
	require.NoError(t, err)

	_, err = Build(context.Background(), src)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	var re *ResourceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "read", re.Op)
}

func TestNewSQLSource_RejectsTableName(t *testing.T) {
	for _, name := range []string{"", "words; DROP TABLE users", "1words", "w-ords"} {
		_, err := NewSQLSource(nil, name)
		assert.Error(t, err, "table %q", name)
	}
	_, err := NewSQLSource(nil, "public.dict_words")
	assert.NoError(t, err)
}
