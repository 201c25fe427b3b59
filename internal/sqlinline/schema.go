package sqlinline

// QEnsureSchema is run without arguments, so pgx sends it over the simple
// protocol and the statements execute as one batch.
const QEnsureSchema = `--sql 4bfd91db-ac64-4332-b64d-23b909205eab
create table if not exists generation_jobs (
  handle text primary key,
  provider_job_id text not null,
  provider_id text not null,
  media_type text not null,
  state text not null,
  progress_percent int not null default 0,
  composition_mode text not null,
  source_count int not null,
  duration_seconds int not null,
  user_key text,
  error_code text,
  error_message text,
  artifact_ref text,
  submitted_at timestamptz not null,
  updated_at timestamptz not null default now()
);
create index if not exists generation_jobs_submitted_at_idx on generation_jobs (submitted_at);
create table if not exists user_contexts (
  user_key text primary key,
  content text not null,
  updated_at timestamptz not null default now()
);
`
