package docstore

const initialSchemaV1 = `
CREATE TABLE IF NOT EXISTS contributors (
    user_name    TEXT PRIMARY KEY,
    display_name TEXT,
    api_key      TEXT UNIQUE NOT NULL,
    role         TEXT DEFAULT 'contributor' CHECK(role IN ('admin', 'contributor')),
    created      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
    id       TEXT PRIMARY KEY,
    kind     TEXT NOT NULL CHECK(kind IN ('question')),
    doc      TEXT NOT NULL,
    version  INTEGER NOT NULL,
    created  TEXT NOT NULL,
    updated  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_kind    ON documents(kind);
CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated DESC);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
    id UNINDEXED,
    title,
    body,
    tags,
    content='documents',
    content_rowid='rowid',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS documents_fts_insert AFTER INSERT ON documents BEGIN
    INSERT INTO documents_fts(rowid, id, title, body, tags)
    VALUES (new.rowid, new.id,
            json_extract(new.doc, '$.title'),
            json_extract(new.doc, '$.body'),
            COALESCE(json_extract(new.doc, '$.tags'), ''));
END;

CREATE TRIGGER IF NOT EXISTS documents_fts_update AFTER UPDATE ON documents BEGIN
    INSERT INTO documents_fts(documents_fts, rowid, id, title, body, tags)
    VALUES ('delete', old.rowid, old.id,
            json_extract(old.doc, '$.title'),
            json_extract(old.doc, '$.body'),
            COALESCE(json_extract(old.doc, '$.tags'), ''));
    INSERT INTO documents_fts(rowid, id, title, body, tags)
    VALUES (new.rowid, new.id,
            json_extract(new.doc, '$.title'),
            json_extract(new.doc, '$.body'),
            COALESCE(json_extract(new.doc, '$.tags'), ''));
END;

CREATE TRIGGER IF NOT EXISTS documents_fts_delete AFTER DELETE ON documents BEGIN
    INSERT INTO documents_fts(documents_fts, rowid, id, title, body, tags)
    VALUES ('delete', old.rowid, old.id,
            json_extract(old.doc, '$.title'),
            json_extract(old.doc, '$.body'),
            COALESCE(json_extract(old.doc, '$.tags'), ''));
END;
`
